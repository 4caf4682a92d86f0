package calendar

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	TimestampLayout = "2006-01-02 15:04"

	fileHeader     = "# planner data - format: ID;Type;Title;Description;StartTime;Duration;Detail"
	fieldSeparator = ';'
	fieldCount     = 7
)

// Encode renders events in the line format of the data file: a header
// comment and one ';'-separated record per event.
func Encode(events []Event) []byte {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	buf.WriteByte('\n')
	for _, e := range events {
		fields := []string{
			escapeField(e.ID()),
			e.Kind().String(),
			escapeField(e.Title()),
			escapeField(e.Description()),
			e.Start().In(time.Local).Format(TimestampLayout),
			strconv.Itoa(e.DurationMinutes()),
			escapeField(e.Detail()),
		}
		buf.WriteString(strings.Join(fields, string(fieldSeparator)))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Decode parses the data file format. Malformed records are skipped and
// reported as warnings; they never stop the rest of the data from loading.
// Records have no length limit.
func Decode(data []byte) ([]Event, []DecodeWarning) {
	var (
		events   []Event
		warnings []DecodeWarning
	)
	for i, raw := range bytes.Split(data, []byte{'\n'}) {
		line := strings.TrimRight(string(raw), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := decodeRecord(line)
		if err != nil {
			warnings = append(warnings, DecodeWarning{Line: i + 1, Reason: err.Error()})
			continue
		}
		events = append(events, e)
	}
	return events, warnings
}

func decodeRecord(line string) (Event, error) {
	fields, err := splitFields(line)
	if err != nil {
		return Event{}, err
	}
	if len(fields) != fieldCount {
		return Event{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}
	kind, err := ParseKind(fields[1])
	if err != nil {
		return Event{}, err
	}
	start, err := time.ParseInLocation(TimestampLayout, fields[4], time.Local)
	if err != nil {
		return Event{}, fmt.Errorf("invalid start time %q", fields[4])
	}
	duration, err := strconv.Atoi(fields[5])
	if err != nil {
		return Event{}, fmt.Errorf("invalid duration %q", fields[5])
	}
	if fields[0] == "" {
		return Event{}, &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	return NewEvent(EventParams{
		ID:              fields[0],
		Kind:            kind,
		Title:           fields[2],
		Description:     fields[3],
		Start:           start,
		DurationMinutes: duration,
		Detail:          fields[6],
	})
}

func escapeField(s string) string {
	if !strings.ContainsAny(s, "\\;\n\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case fieldSeparator:
			b.WriteString(`\;`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitFields splits on unescaped separators and unescapes each field.
func splitFields(line string) ([]string, error) {
	var (
		fields []string
		cur    strings.Builder
	)
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if escaped {
			switch c {
			case '\\', fieldSeparator:
				cur.WriteByte(c)
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			default:
				return nil, fmt.Errorf("invalid escape sequence \\%c", c)
			}
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case fieldSeparator:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if escaped {
		return nil, fmt.Errorf("dangling escape at end of record")
	}
	return append(fields, cur.String()), nil
}
