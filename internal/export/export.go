// Package export writes sessions with their derived worked time and
// earnings as JSON or CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/timeline"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (expected json or csv)", s)
}

// Record is one exported session.
type Record struct {
	ID            string `json:"id"`
	ProjectID     string `json:"project_id"`
	Project       string `json:"project"`
	Client        string `json:"client,omitempty"`
	Start         string `json:"start"`
	End           string `json:"end"`
	PausedSeconds int64  `json:"paused_seconds"`
	ActiveSeconds int64  `json:"active_seconds"`
	Salary        string `json:"salary"`
	HourlyPayment bool   `json:"hourly_payment"`
	Currency      string `json:"currency"`
	Earnings      string `json:"earnings"`
	Memo          string `json:"memo,omitempty"`
}

var csvHeader = []string{
	"id", "project_id", "project", "client", "start", "end",
	"paused_seconds", "active_seconds", "salary", "hourly_payment",
	"currency", "earnings", "memo",
}

// Records converts sessions into export records. Projects supply the names;
// sessions of unknown projects keep an empty name.
func Records(sessions []models.Session, projects []models.Project) []Record {
	byID := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}

	records := make([]Record, 0, len(sessions))
	for _, s := range sessions {
		p := byID[s.ProjectID]
		records = append(records, Record{
			ID:            s.ID,
			ProjectID:     s.ProjectID,
			Project:       p.Name,
			Client:        p.ClientName,
			Start:         s.Start.UTC().Format(time.RFC3339),
			End:           s.End.UTC().Format(time.RFC3339),
			PausedSeconds: s.Payload.PausedSeconds,
			ActiveSeconds: timeline.ActiveSeconds(s),
			Salary:        s.Payload.Salary.String(),
			HourlyPayment: s.Payload.HourlyPayment,
			Currency:      s.Payload.Currency,
			Earnings:      timeline.Earnings(s).StringFixed(2),
			Memo:          s.Payload.Memo,
		})
	}
	return records
}

// Load reads the sessions of one project, or all sessions when projectID is
// empty, ready for export.
func Load(conn db.DBTX, projectID string) ([]Record, error) {
	projects, err := repository.NewProjectRepo(conn).GetAll()
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}

	sessions := repository.NewSessionRepo(conn)
	var list []models.Session
	if projectID == "" {
		list, err = sessions.ListAll()
	} else {
		list, err = sessions.ListByProject(projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	return Records(list, projects), nil
}

// Write encodes records in the given format.
func Write(w io.Writer, format Format, records []Record) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func WriteJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID, r.ProjectID, r.Project, r.Client, r.Start, r.End,
			strconv.FormatInt(r.PausedSeconds, 10),
			strconv.FormatInt(r.ActiveSeconds, 10),
			r.Salary, strconv.FormatBool(r.HourlyPayment),
			r.Currency, r.Earnings, r.Memo,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
