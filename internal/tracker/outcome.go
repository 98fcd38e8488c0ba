package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/timeline"
)

// Outcome reports what happened to a session on add or edit.
type Outcome struct {
	// Original is the session as requested, after rounding.
	Original   models.Session
	Resolution timeline.Resolution[models.SessionDetails]
	// Stored are the rows written, with their final IDs. Empty on a
	// complete overlap.
	Stored []models.Session

	calendar timeline.Calendar
}

// Adjusted reports whether the stored session differs from the request.
func (o *Outcome) Adjusted() bool {
	return o.Resolution.Kind != timeline.NoOverlap
}

// Notice explains an overlap to the user. It is empty when the session was
// stored unchanged.
func (o *Outcome) Notice() string {
	var b strings.Builder

	switch o.Resolution.Kind {
	case timeline.NoOverlap:
		return ""
	case timeline.CompleteOverlap:
		fmt.Fprintf(&b, "Session %s is already covered by %s. Nothing was saved.\n",
			o.span(o.Original.Start, o.Original.End), plural(len(o.Resolution.Overlapping), "existing session"))
	case timeline.PartialOverlap:
		fmt.Fprintf(&b, "Session overlapped %s and was adjusted.\n",
			plural(len(o.Resolution.Overlapping), "existing session"))
	}

	fmt.Fprintf(&b, "  requested: %s\n", o.span(o.Original.Start, o.Original.End))
	for _, s := range o.Stored {
		fmt.Fprintf(&b, "  saved:     %s\n", o.span(s.Start, s.End))
	}
	for _, c := range o.Resolution.Collisions {
		fmt.Fprintf(&b, "  collided:  %s\n", o.span(c.Start, c.End))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Outcome) span(start, end time.Time) string {
	start = o.calendar.Local(start)
	end = o.calendar.Local(end)
	if o.calendar.Day(start).Equal(o.calendar.Day(end)) {
		return fmt.Sprintf("%s %s-%s", start.Format("2006-01-02"), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
