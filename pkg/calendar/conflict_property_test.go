//go:build property
// +build property

package calendar

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var propertyBase = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)

func propertyEvent(offsetMinutes, minutes int) Event {
	e, err := NewEvent(EventParams{
		Kind:            KindAppointment,
		Title:           "p",
		Start:           propertyBase.Add(time.Duration(offsetMinutes) * time.Minute),
		DurationMinutes: minutes,
	})
	if err != nil {
		panic(err)
	}
	return e
}

// Property: for a.start < b.start, Conflicts(a, b) == (a.end > b.start)
func TestConflictsMatchesEndAfterStart(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("earlier event conflicts iff it ends after the later one starts", prop.ForAll(
		func(aOffset, gap, aLen, bLen int) bool {
			a := propertyEvent(aOffset, aLen)
			b := propertyEvent(aOffset+gap, bLen)
			return Conflicts(a, b) == a.End().After(b.Start())
		},
		gen.IntRange(0, 10_000),
		gen.IntRange(1, 600),
		gen.IntRange(1, 600),
		gen.IntRange(1, 600),
	))

	properties.Property("conflicts is symmetric", prop.ForAll(
		func(aOffset, bOffset, aLen, bLen int) bool {
			a := propertyEvent(aOffset, aLen)
			b := propertyEvent(bOffset, bLen)
			return Conflicts(a, b) == Conflicts(b, a)
		},
		gen.IntRange(0, 2_000),
		gen.IntRange(0, 2_000),
		gen.IntRange(1, 300),
		gen.IntRange(1, 300),
	))

	properties.TestingRun(t)
}

// Property: whatever sequence of adds succeeds, no two stored events overlap.
func TestStoreNeverHoldsOverlaps(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("successful adds keep the store overlap free", prop.ForAll(
		func(offsets []int, lengths []int) bool {
			store, err := NewStore(NewRepositoryStub())
			if err != nil {
				return false
			}
			for i := 0; i < len(offsets) && i < len(lengths); i++ {
				_ = store.Add(propertyEvent(offsets[i], lengths[i]))
			}
			all := store.All()
			for i := range all {
				for j := i + 1; j < len(all); j++ {
					if Conflicts(all[i], all[j]) {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1_440)),
		gen.SliceOf(gen.IntRange(1, 240)),
	))

	properties.TestingRun(t)
}

// Property: Decode(Encode(events)) returns the same events.
func TestCodecRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("round trip keeps every field", prop.ForAll(
		func(title, description, detail string, offset, minutes int) bool {
			e, err := NewEvent(EventParams{
				Kind:            KindDeadline,
				Title:           "t" + title,
				Description:     description,
				Start:           propertyBase.Add(time.Duration(offset) * time.Minute),
				DurationMinutes: minutes,
				Detail:          detail + ";" + description,
			})
			if err != nil {
				return false
			}
			decoded, warnings := Decode(Encode([]Event{e}))
			return len(warnings) == 0 && len(decoded) == 1 && decoded[0].Equal(e)
		},
		gen.AlphaString(),
		gen.AnyString(),
		gen.AnyString(),
		gen.IntRange(0, 100_000),
		gen.IntRange(1, 1_000),
	))

	properties.TestingRun(t)
}
