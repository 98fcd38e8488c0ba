package timeline

import (
	"fmt"
	"math"
	"time"
)

// RoundDirection selects how RoundDuration snaps to the step.
type RoundDirection string

const (
	RoundUp      RoundDirection = "up"
	RoundDown    RoundDirection = "down"
	RoundNearest RoundDirection = "nearest"
)

// ParseRoundDirection validates a configured direction.
func ParseRoundDirection(s string) (RoundDirection, error) {
	switch d := RoundDirection(s); d {
	case RoundUp, RoundDown, RoundNearest:
		return d, nil
	}
	return "", fmt.Errorf("unknown rounding direction %q (expected up, down or nearest)", s)
}

// RoundDuration snaps d to a multiple of step. Any positive duration rounds
// to at least one step. A non-positive step leaves d unchanged.
func RoundDuration(d, step time.Duration, dir RoundDirection) time.Duration {
	if step <= 0 || d <= 0 {
		return d
	}

	steps := float64(d) / float64(step)
	switch dir {
	case RoundUp:
		steps = math.Ceil(steps)
	case RoundDown:
		steps = math.Floor(steps)
	default:
		steps = math.Round(steps)
	}

	if steps < 1 {
		steps = 1
	}
	return time.Duration(steps) * step
}
