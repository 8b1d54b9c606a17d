// Package schedule validates and evaluates the ISO 8601 repeating time
// intervals used as prescription time statements, e.g. "R/2024-01-01T00:00:00Z/P1M"
// or "R12/2024-01-01T00:00:00Z/P28D".
package schedule

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ErrInvalidStatement is returned for anything that does not parse as an
// ISO 8601 repeating interval.
var ErrInvalidStatement = errors.New("invalid ISO 8601 repeating interval")

// Recurrence is a parsed repeating interval.
type Recurrence struct {
	// Count is the number of repetitions; 0 means unbounded ("R/...").
	Count int
	// Start is the anchor instant, set for start/duration and start/end forms.
	Start *time.Time
	// End is set for start/end and duration/end forms.
	End *time.Time
	// Period is the cycle length, nil only for the start/end form.
	Period *duration.Duration

	raw string
}

// Parse validates a time statement and returns its recurrence.
func Parse(statement string) (*Recurrence, error) {
	if !strings.HasPrefix(statement, "R") {
		return nil, ErrInvalidStatement
	}

	parts := strings.Split(statement, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, ErrInvalidStatement
	}

	rec := &Recurrence{raw: statement}

	countPart := strings.TrimPrefix(parts[0], "R")
	if countPart != "" {
		count, err := strconv.Atoi(countPart)
		if err != nil || count < 0 {
			return nil, ErrInvalidStatement
		}
		rec.Count = count
	}

	switch len(parts) {
	case 2:
		// R[n]/duration
		period, err := duration.Parse(parts[1])
		if err != nil {
			return nil, ErrInvalidStatement
		}
		rec.Period = period
	case 3:
		first, second := parts[1], parts[2]
		switch {
		case isDuration(first):
			// R[n]/duration/end
			period, err := duration.Parse(first)
			if err != nil {
				return nil, ErrInvalidStatement
			}
			end, err := parseInstant(second)
			if err != nil {
				return nil, ErrInvalidStatement
			}
			rec.Period = period
			rec.End = &end
		case isDuration(second):
			// R[n]/start/duration
			start, err := parseInstant(first)
			if err != nil {
				return nil, ErrInvalidStatement
			}
			period, err := duration.Parse(second)
			if err != nil {
				return nil, ErrInvalidStatement
			}
			rec.Start = &start
			rec.Period = period
		default:
			// R[n]/start/end
			start, err := parseInstant(first)
			if err != nil {
				return nil, ErrInvalidStatement
			}
			end, err := parseInstant(second)
			if err != nil || !end.After(start) {
				return nil, ErrInvalidStatement
			}
			rec.Start = &start
			rec.End = &end
		}
	}

	return rec, nil
}

// String returns the statement as supplied.
func (r *Recurrence) String() string {
	return r.raw
}

const occurrenceCap = 1000

// Occurrences enumerates cycle boundaries, oldest first, up to max entries.
// Only recurrences anchored on a start instant with a period can be
// enumerated; other forms return nil.
func (r *Recurrence) Occurrences(max int) []time.Time {
	if r.Start == nil || r.Period == nil {
		return nil
	}
	if max <= 0 || max > occurrenceCap {
		max = occurrenceCap
	}
	if r.Count > 0 && r.Count < max {
		max = r.Count
	}

	step := r.Period.ToTimeDuration()
	if step <= 0 {
		return nil
	}

	occurrences := make([]time.Time, 0, max)
	current := *r.Start
	for i := 0; i < max; i++ {
		if r.End != nil && current.After(*r.End) {
			break
		}
		occurrences = append(occurrences, current)
		current = current.Add(step)
	}
	return occurrences
}

func isDuration(s string) bool {
	return strings.HasPrefix(s, "P")
}

func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
