package timeline

import (
	"errors"
	"slices"
	"time"
)

// ErrCompleteOverlap is returned when a candidate interval is entirely
// covered by existing intervals and nothing is left to store.
var ErrCompleteOverlap = errors.New("session is completely covered by existing sessions")

// OverlapKind classifies the result of Resolve.
type OverlapKind int

const (
	NoOverlap OverlapKind = iota
	PartialOverlap
	CompleteOverlap
)

func (k OverlapKind) String() string {
	switch k {
	case NoOverlap:
		return "none"
	case PartialOverlap:
		return "partial"
	case CompleteOverlap:
		return "complete"
	}
	return "unknown"
}

// Resolution is the outcome of fitting a candidate between existing intervals.
type Resolution[P any] struct {
	Kind OverlapKind

	// Adjusted holds the non-overlapping pieces of the candidate, ordered by
	// start. It is nil when Kind is CompleteOverlap.
	Adjusted []Interval[P]

	// Overlapping lists the existing intervals the candidate collided with.
	Overlapping []Interval[P]

	// Collisions holds one fragment per overlapping interval: the part of the
	// candidate that interval took away.
	Collisions []Fragment
}

// Err returns ErrCompleteOverlap for a complete overlap and nil otherwise.
func (r Resolution[P]) Err() error {
	if r.Kind == CompleteOverlap {
		return ErrCompleteOverlap
	}
	return nil
}

// Resolve fits candidate between the existing intervals of the same project.
// existing must not contain the candidate's own prior version.
//
// Overlaps touching the candidate's start push the start forward, overlaps
// touching its end pull the end back, and overlaps strictly inside the
// candidate split it into several pieces. Every piece keeps the candidate's
// ID and payload; callers assign fresh IDs to all but the first.
//
// Neither the candidate nor existing are validated. Callers must pass a
// candidate that ends after it starts.
func Resolve[P any](existing []Interval[P], candidate Interval[P]) Resolution[P] {
	var overlapping []Interval[P]
	for _, e := range existing {
		if Overlaps(candidate.Start, candidate.End, e.Start, e.End) {
			overlapping = append(overlapping, e)
		}
	}

	if len(overlapping) == 0 {
		return Resolution[P]{
			Kind:        NoOverlap,
			Adjusted:    []Interval[P]{candidate},
			Overlapping: []Interval[P]{},
		}
	}

	for _, e := range overlapping {
		if !e.Start.After(candidate.Start) && !e.End.Before(candidate.End) {
			return Resolution[P]{
				Kind:        CompleteOverlap,
				Overlapping: []Interval[P]{e},
				Collisions:  []Fragment{{Start: candidate.Start, End: candidate.End}},
			}
		}
	}

	slices.SortStableFunc(overlapping, func(a, b Interval[P]) int {
		return a.Start.Compare(b.Start)
	})

	collisions := make([]Fragment, 0, len(overlapping))
	var adjusted []Interval[P]
	cursor := candidate.Start
	for _, e := range overlapping {
		collisions = append(collisions, Fragment{
			Start: later(candidate.Start, e.Start),
			End:   earlier(candidate.End, e.End),
		})
		if e.Start.After(cursor) {
			adjusted = append(adjusted, piece(candidate, cursor, e.Start))
		}
		cursor = later(cursor, e.End)
	}
	if cursor.Before(candidate.End) {
		adjusted = append(adjusted, piece(candidate, cursor, candidate.End))
	}

	// Several intervals together can cover the candidate without any one of
	// them containing it.
	if len(adjusted) == 0 {
		return Resolution[P]{
			Kind:        CompleteOverlap,
			Overlapping: overlapping,
			Collisions:  collisions,
		}
	}

	return Resolution[P]{
		Kind:        PartialOverlap,
		Adjusted:    adjusted,
		Overlapping: overlapping,
		Collisions:  collisions,
	}
}

func piece[P any](candidate Interval[P], start, end time.Time) Interval[P] {
	candidate.Start = start
	candidate.End = end
	return candidate
}
