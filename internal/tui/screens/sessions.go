package screens

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/timeline"
	"github.com/GwydionBr/life-manager/internal/tracker"
)

type sessionsMode int

const (
	sessionsModeTree sessionsMode = iota
	sessionsModeAdd
	sessionsModeDelete
)

type rowLevel int

const (
	levelYear rowLevel = iota
	levelMonth
	levelWeek
	levelDay
	levelSession
)

// treeRow is one visible line of the session tree.
type treeRow struct {
	key     string
	level   rowLevel
	label   string
	totals  timeline.Totals
	session *models.Session
}

type Sessions struct {
	db      *sql.DB
	tracker *tracker.Tracker
	format  Formatter
	width   int
	height  int

	projectFilter *string
	projectNames  map[string]string
	tree          tracker.Tree
	rows          []treeRow
	expanded      map[string]bool
	selected      map[string]bool
	cursor        int
	mode          sessionsMode
	input         textinput.Model
	loading       bool
	err           error
	message       string
	notice        string
}

func NewSessions(db *sql.DB, t *tracker.Tracker, format Formatter) *Sessions {
	ti := textinput.New()
	ti.Placeholder = "2025-03-10 09:00 10:30 memo"
	ti.CharLimit = 200
	ti.Width = 50

	return &Sessions{
		db:       db,
		tracker:  t,
		format:   format,
		input:    ti,
		expanded: make(map[string]bool),
		selected: make(map[string]bool),
	}
}

func (s *Sessions) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// SetProjectFilter limits the tree to one project. Nil shows all sessions.
func (s *Sessions) SetProjectFilter(projectID *string) {
	s.projectFilter = projectID
	s.expanded = make(map[string]bool)
	s.selected = make(map[string]bool)
	s.cursor = 0
}

type sessionsDataMsg struct {
	tree         tracker.Tree
	projectNames map[string]string
	err          error
}

func (s *Sessions) Init() tea.Cmd {
	s.loading = true
	s.mode = sessionsModeTree
	s.message = ""
	s.notice = ""
	return s.loadData
}

func (s *Sessions) loadData() tea.Msg {
	projectID := ""
	if s.projectFilter != nil {
		projectID = *s.projectFilter
	}

	tree, err := s.tracker.Tree(projectID)
	if err != nil {
		return sessionsDataMsg{err: err}
	}

	projects, err := repository.NewProjectRepo(s.db).GetAll()
	if err != nil {
		return sessionsDataMsg{err: err}
	}
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	return sessionsDataMsg{tree: tree, projectNames: names}
}

func (s *Sessions) Update(msg tea.Msg) tea.Cmd {
	if s.mode == sessionsModeAdd {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "enter":
				return s.handleAdd()
			case "esc":
				s.mode = sessionsModeTree
				s.input.Blur()
				return nil
			}
			var cmd tea.Cmd
			s.input, cmd = s.input.Update(msg)
			return cmd
		}
	}

	switch msg := msg.(type) {
	case sessionsDataMsg:
		s.loading = false
		s.err = msg.err
		s.tree = msg.tree
		s.projectNames = msg.projectNames
		s.pruneSelection()
		if len(s.expanded) == 0 {
			s.expandLatest()
		}
		s.rebuild()
		return nil

	case RefreshMsg:
		return s.loadData

	case tea.KeyMsg:
		switch s.mode {
		case sessionsModeTree:
			return s.handleTreeKey(msg)
		case sessionsModeDelete:
			return s.handleDeleteKey(msg)
		}
	}

	if s.mode == sessionsModeAdd {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return cmd
	}
	return nil
}

func (s *Sessions) handleTreeKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(s.rows)-1 {
			s.cursor++
		}
	case "enter":
		if len(s.rows) == 0 {
			return nil
		}
		row := s.rows[s.cursor]
		if row.session != nil {
			s.toggleSelection(row)
		} else {
			s.setExpanded(row, !s.expanded[row.key])
		}
	case "right", "l":
		if len(s.rows) > 0 && s.rows[s.cursor].session == nil {
			s.setExpanded(s.rows[s.cursor], true)
		}
	case "left", "h":
		if len(s.rows) > 0 && s.rows[s.cursor].session == nil {
			s.setExpanded(s.rows[s.cursor], false)
		}
	case " ", "x":
		if len(s.rows) > 0 {
			s.toggleSelection(s.rows[s.cursor])
		}
	case "c":
		s.selected = make(map[string]bool)
	case "a":
		if s.projectFilter == nil {
			s.message = "Open a project to add sessions."
			return nil
		}
		s.mode = sessionsModeAdd
		s.notice = ""
		s.input.SetValue("")
		s.input.Focus()
	case "d":
		if len(s.selected) > 0 {
			s.mode = sessionsModeDelete
		}
	case "q", "esc":
		if s.projectFilter != nil {
			return Navigate("projects")
		}
		return Navigate("dashboard")
	}
	return nil
}

func (s *Sessions) setExpanded(row treeRow, open bool) {
	if open {
		s.expanded[row.key] = true
	} else {
		delete(s.expanded, row.key)
	}
	s.rebuild()
}

// toggleSelection selects every session under the row, or clears them all
// when the row is already fully selected.
func (s *Sessions) toggleSelection(row treeRow) {
	on := row.totals.Selection(s.selected) != timeline.SelectAll
	for id := range row.totals.SessionIDs {
		if on {
			s.selected[id] = true
		} else {
			delete(s.selected, id)
		}
	}
}

func (s *Sessions) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		ids := make([]string, 0, len(s.selected))
		for id := range s.selected {
			ids = append(ids, id)
		}
		n, err := s.tracker.DeleteSessions(ids)
		if err != nil {
			s.err = err
		} else {
			s.message = fmt.Sprintf("Deleted %d sessions", n)
			s.selected = make(map[string]bool)
		}
		s.mode = sessionsModeTree
		return s.loadData

	case "n", "N", "esc":
		s.mode = sessionsModeTree
	}
	return nil
}

func (s *Sessions) handleAdd() tea.Cmd {
	s.mode = sessionsModeTree
	s.input.Blur()

	value := strings.TrimSpace(s.input.Value())
	if value == "" {
		return nil
	}

	in, err := ParseSessionLine(value, s.tracker.Calendar().Location)
	if err != nil {
		s.err = err
		return nil
	}
	in.ProjectID = *s.projectFilter

	out, err := s.tracker.AddSession(in)
	switch {
	case errors.Is(err, timeline.ErrCompleteOverlap):
		s.notice = out.Notice()
	case err != nil:
		s.err = err
	default:
		s.message = "Session added"
		s.notice = out.Notice()
	}
	return s.loadData
}

// ParseSessionLine reads "YYYY-MM-DD HH:MM HH:MM [memo]" in loc. An end
// before the start is taken to be on the following day.
func ParseSessionLine(line string, loc *time.Location) (tracker.SessionInput, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return tracker.SessionInput{}, fmt.Errorf("expected: date start end [memo]")
	}
	if loc == nil {
		loc = time.Local
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", fields[0]+" "+fields[1], loc)
	if err != nil {
		return tracker.SessionInput{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", fields[0]+" "+fields[2], loc)
	if err != nil {
		return tracker.SessionInput{}, fmt.Errorf("invalid end: %w", err)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	return tracker.SessionInput{
		Start: start,
		End:   end,
		Memo:  strings.Join(fields[3:], " "),
	}, nil
}

func (s *Sessions) pruneSelection() {
	known := make(map[string]bool)
	for _, y := range s.tree {
		for id := range y.Data.SessionIDs {
			known[id] = true
		}
	}
	for id := range s.selected {
		if !known[id] {
			delete(s.selected, id)
		}
	}
}

func (s *Sessions) expandLatest() {
	years := timeline.SortedYears(s.tree, true)
	if len(years) == 0 {
		return
	}
	y := years[0].Data
	s.expanded[yearKey(y.Year)] = true
	if months := y.SortedMonths(true); len(months) > 0 {
		s.expanded[monthKey(y.Year, months[0].Month)] = true
	}
}

func (s *Sessions) rebuild() {
	s.rows = flatten(s.tree, s.expanded, s.tracker.Calendar())
	if s.cursor >= len(s.rows) {
		s.cursor = max(0, len(s.rows)-1)
	}
}

func yearKey(year int) string {
	return fmt.Sprintf("%d", year)
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%02d", year, int(month))
}

// flatten turns the tree into visible rows, newest first, descending only
// into expanded nodes.
func flatten(tree tracker.Tree, expanded map[string]bool, cal timeline.Calendar) []treeRow {
	var rows []treeRow
	for _, yg := range timeline.SortedYears(tree, true) {
		y := yg.Data
		yk := yearKey(y.Year)
		rows = append(rows, treeRow{key: yk, level: levelYear, label: yk, totals: y.Totals})
		if !expanded[yk] {
			continue
		}

		for _, m := range y.SortedMonths(true) {
			mk := monthKey(y.Year, m.Month)
			rows = append(rows, treeRow{key: mk, level: levelMonth, label: m.Month.String(), totals: m.Totals})
			if !expanded[mk] {
				continue
			}

			for _, w := range m.SortedWeeks(true) {
				wk := fmt.Sprintf("%s-w%02d", mk, w.Week)
				rows = append(rows, treeRow{key: wk, level: levelWeek, label: fmt.Sprintf("Week %d", w.Week), totals: w.Totals})
				if !expanded[wk] {
					continue
				}

				for _, d := range w.SortedDays(true) {
					dk := d.Date.Format("2006-01-02")
					rows = append(rows, treeRow{key: dk, level: levelDay, label: d.Date.Format("Mon 02 Jan"), totals: d.Totals})
					if !expanded[dk] {
						continue
					}

					for i := range d.Sessions {
						sess := d.Sessions[i]
						start, end := cal.Local(sess.Start), cal.Local(sess.End)
						rows = append(rows, treeRow{
							key:     sess.ID,
							level:   levelSession,
							label:   fmt.Sprintf("%s-%s", start.Format("15:04"), end.Format("15:04")),
							totals:  sessionTotals(sess),
							session: &sess,
						})
					}
				}
			}
		}
	}
	return rows
}

func sessionTotals(s models.Session) timeline.Totals {
	return timeline.Totals{
		Earnings:   timeline.Earnings(s),
		Seconds:    timeline.ActiveSeconds(s),
		SessionIDs: map[string]struct{}{s.ID: {}},
	}
}

func (s *Sessions) View() string {
	var b strings.Builder

	title := "SESSIONS"
	if s.projectFilter != nil {
		title = fmt.Sprintf("SESSIONS - %s", s.projectNames[*s.projectFilter])
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	if s.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if s.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", s.err)))
		b.WriteString("\n\n")
		s.err = nil
	}

	if s.message != "" {
		b.WriteString(SuccessStyle.Render(s.message))
		b.WriteString("\n\n")
	}

	if s.notice != "" {
		b.WriteString(WarningStyle.Render(s.notice))
		b.WriteString("\n\n")
	}

	switch s.mode {
	case sessionsModeAdd:
		b.WriteString("New session (date start end memo):\n")
		b.WriteString(s.input.View())
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("[enter] Save  [esc] Cancel"))
		return b.String()

	case sessionsModeDelete:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Delete %d selected sessions? (y/n)", len(s.selected))))
		b.WriteString("\n")
		return b.String()
	}

	if len(s.rows) == 0 {
		b.WriteString(DimStyle.Render("No sessions yet."))
		b.WriteString("\n\n")
	} else {
		for i, row := range s.rows {
			b.WriteString(s.renderRow(row, i == s.cursor))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(s.selected) > 0 {
		b.WriteString(DimStyle.Render(fmt.Sprintf("%d selected", len(s.selected))))
		b.WriteString("\n")
	}

	help := "[enter] Expand  [x] Select  [c] Clear  [a] Add  [d] Delete selected  [q] Back"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}

const labelWidth = 28

func (s *Sessions) renderRow(row treeRow, focused bool) string {
	cursor := "  "
	if focused {
		cursor = "> "
	}

	style := NormalStyle
	mark := "[ ]"
	switch row.totals.Selection(s.selected) {
	case timeline.SelectAll:
		style = SelectedStyle
		mark = "[x]"
	case timeline.SelectSome:
		style = PartialStyle
		mark = "[~]"
	}

	indent := strings.Repeat("  ", int(row.level))
	fold := "  "
	if row.session == nil {
		fold = "+ "
		if s.expanded[row.key] {
			fold = "- "
		}
	}

	label := indent + fold + row.label
	if row.session != nil && s.projectFilter == nil {
		label += " " + s.projectNames[row.session.ProjectID]
	}
	if row.session != nil && row.session.Payload.Memo != "" {
		label += " " + row.session.Payload.Memo
	}
	label = runewidth.FillRight(runewidth.Truncate(label, labelWidth, "…"), labelWidth)

	currency := ""
	if row.session != nil {
		currency = row.session.Payload.Currency
	}
	line := fmt.Sprintf("%s%s %s %10s  %s",
		cursor,
		mark,
		label,
		s.format.Duration(row.totals.Seconds),
		strings.TrimSpace(s.format.Money(row.totals.Earnings, currency)),
	)
	return style.Render(line)
}
