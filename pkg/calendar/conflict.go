package calendar

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Intervals that only touch do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func Conflicts(a, b Event) bool {
	return Overlaps(a.Start(), a.End(), b.Start(), b.End())
}
