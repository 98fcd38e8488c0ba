// Package timeline holds the pure interval math behind work sessions:
// overlap resolution, calendar grouping and duration rounding.
package timeline

import "time"

// Interval is a half-open [Start, End) range of work on one project.
// Payload carries whatever the caller attaches (salary, memo, ...) and is
// copied through untouched.
type Interval[P any] struct {
	ID        string
	ProjectID string
	Start     time.Time
	End       time.Time
	Payload   P
}

// Duration returns the wall-clock span of the interval.
func (iv Interval[P]) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Fragment is the part of a candidate interval that collided with an
// existing one. It is only used for reporting.
type Fragment struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
