package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/timeline"
)

type Client struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Project struct {
	ID            string
	Name          string
	ClientID      *string // nullable for orphans
	Salary        decimal.Decimal
	HourlyPayment bool
	Currency      string
	CreatedAt     time.Time

	// Joined fields
	ClientName string
}

// SessionDetails is the payload a work session carries besides its range.
type SessionDetails struct {
	Salary        decimal.Decimal
	HourlyPayment bool
	Currency      string
	Memo          string
	PausedSeconds int64
	CreatedAt     time.Time
}

func (d SessionDetails) PausedDuration() time.Duration {
	return time.Duration(d.PausedSeconds) * time.Second
}

func (d SessionDetails) HourlyRate() (decimal.Decimal, bool) {
	return d.Salary, d.HourlyPayment
}

// Session is one tracked block of work on a project.
type Session = timeline.Interval[SessionDetails]
