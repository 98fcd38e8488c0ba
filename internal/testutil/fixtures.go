package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/models"
)

// Day is the fixed date fixtures are built on.
var Day = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

// At returns Day at the given hour and minute.
func At(hour, minute int) time.Time {
	return Day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// Session options
type SessionOption func(*models.Session)

func WithID(id string) SessionOption {
	return func(s *models.Session) {
		s.ID = id
	}
}

func WithSalary(rate int64, hourly bool) SessionOption {
	return func(s *models.Session) {
		s.Payload.Salary = decimal.NewFromInt(rate)
		s.Payload.HourlyPayment = hourly
	}
}

func WithPaused(d time.Duration) SessionOption {
	return func(s *models.Session) {
		s.Payload.PausedSeconds = int64(d / time.Second)
	}
}

func WithMemo(memo string) SessionOption {
	return func(s *models.Session) {
		s.Payload.Memo = memo
	}
}

// NewTestSession builds an hourly-paid session at 10 EUR/h.
func NewTestSession(projectID string, start, end time.Time, opts ...SessionOption) models.Session {
	s := models.Session{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Start:     start,
		End:       end,
		Payload: models.SessionDetails{
			Salary:        decimal.NewFromInt(10),
			HourlyPayment: true,
			Currency:      "EUR",
			CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
