package screens

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/tracker"
)

type projectsMode int

const (
	projectsModeList projectsMode = iota
	projectsModeAdd
	projectsModeEdit
	projectsModeRate
	projectsModeDelete
	projectsModeMove
)

type Projects struct {
	db              *sql.DB
	tracker         *tracker.Tracker
	format          Formatter
	defaultCurrency string
	width           int
	height          int

	projects     []repository.ProjectWithStats
	clients      []repository.ClientWithStats
	clientFilter *string
	cursor       int
	clientCursor int
	mode         projectsMode
	input        textinput.Model
	loading      bool
	err          error
	message      string
}

func NewProjects(db *sql.DB, t *tracker.Tracker, defaultCurrency string, format Formatter) *Projects {
	ti := textinput.New()
	ti.Placeholder = "Project name"
	ti.CharLimit = 100
	ti.Width = 40

	return &Projects{
		db:              db,
		tracker:         t,
		format:          format,
		defaultCurrency: defaultCurrency,
		input:           ti,
	}
}

func (p *Projects) SetSize(width, height int) {
	p.width = width
	p.height = height
}

func (p *Projects) SetClientFilter(clientID *string) {
	p.clientFilter = clientID
}

type projectsDataMsg struct {
	projects []repository.ProjectWithStats
	clients  []repository.ClientWithStats
	err      error
}

func (p *Projects) Init() tea.Cmd {
	p.loading = true
	p.mode = projectsModeList
	p.message = ""
	return p.loadData
}

func (p *Projects) loadData() tea.Msg {
	projects, err := repository.NewProjectRepo(p.db).GetAllWithStats()
	if err != nil {
		return projectsDataMsg{err: err}
	}

	clients, err := repository.NewClientRepo(p.db).GetAllWithStats()
	if err != nil {
		return projectsDataMsg{err: err}
	}

	return projectsDataMsg{projects: projects, clients: clients}
}

func (p *Projects) Update(msg tea.Msg) tea.Cmd {
	// In input mode, pass messages to text input first
	if p.mode == projectsModeAdd || p.mode == projectsModeEdit || p.mode == projectsModeRate {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "enter":
				return p.handleInputKey()
			case "esc":
				p.mode = projectsModeList
				p.input.Blur()
				return nil
			}
		}
		if _, ok := msg.(projectsDataMsg); !ok {
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return cmd
		}
	}

	switch msg := msg.(type) {
	case projectsDataMsg:
		p.loading = false
		p.err = msg.err
		p.projects = msg.projects
		p.clients = msg.clients

		if p.clientFilter != nil {
			var filtered []repository.ProjectWithStats
			for _, proj := range p.projects {
				if proj.ClientID != nil && *proj.ClientID == *p.clientFilter {
					filtered = append(filtered, proj)
				}
			}
			p.projects = filtered
		}

		if p.cursor >= len(p.projects) {
			p.cursor = max(0, len(p.projects)-1)
		}
		return nil

	case RefreshMsg:
		return p.loadData

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	return nil
}

func (p *Projects) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch p.mode {
	case projectsModeList:
		return p.handleListKey(msg)
	case projectsModeDelete:
		return p.handleDeleteKey(msg)
	case projectsModeMove:
		return p.handleMoveKey(msg)
	}
	return nil
}

func (p *Projects) handleListKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.projects)-1 {
			p.cursor++
		}
	case "a":
		p.mode = projectsModeAdd
		p.input.Placeholder = "Project name"
		p.input.SetValue("")
		p.input.Focus()
	case "e":
		if len(p.projects) > 0 {
			p.mode = projectsModeEdit
			p.input.Placeholder = "Project name"
			p.input.SetValue(p.projects[p.cursor].Name)
			p.input.Focus()
		}
	case "r":
		if len(p.projects) > 0 {
			proj := p.projects[p.cursor]
			p.mode = projectsModeRate
			p.input.Placeholder = "45.00 EUR hourly"
			p.input.SetValue(fmt.Sprintf("%s %s %s", proj.Salary.String(), proj.Currency, paymentKind(proj.HourlyPayment)))
			p.input.Focus()
		}
	case "d":
		if len(p.projects) > 0 {
			p.mode = projectsModeDelete
		}
	case "m":
		if len(p.projects) > 0 && len(p.clients) > 0 {
			p.mode = projectsModeMove
			p.clientCursor = 0
		}
	case "enter":
		if len(p.projects) > 0 {
			return NavigateWithProject("sessions", p.projects[p.cursor].ID)
		}
	case "q", "esc":
		if p.clientFilter != nil {
			return Navigate("clients")
		}
		return Navigate("dashboard")
	}
	return nil
}

func (p *Projects) handleInputKey() tea.Cmd {
	value := strings.TrimSpace(p.input.Value())
	mode := p.mode
	p.mode = projectsModeList
	p.input.Blur()
	if value == "" {
		return nil
	}

	repo := repository.NewProjectRepo(p.db)
	switch mode {
	case projectsModeAdd:
		if _, err := repo.Create(value, p.clientFilter, decimal.Zero, true, p.defaultCurrency); err != nil {
			p.err = err
		} else {
			p.message = fmt.Sprintf("Created project: %s", value)
		}
	case projectsModeEdit:
		if err := repo.Update(p.projects[p.cursor].ID, value); err != nil {
			p.err = err
		} else {
			p.message = fmt.Sprintf("Renamed project: %s", value)
		}
	case projectsModeRate:
		salary, currency, hourly, err := ParseRate(value, p.projects[p.cursor].Currency)
		if err == nil {
			err = repo.SetRate(p.projects[p.cursor].ID, salary, hourly, currency)
		}
		if err != nil {
			p.err = err
		} else {
			p.message = fmt.Sprintf("Rate set: %s %s", p.format.Money(salary, currency), paymentKind(hourly))
		}
	}
	return p.loadData
}

func (p *Projects) handleDeleteKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		name := p.projects[p.cursor].Name
		if n, err := p.tracker.DeleteProject(p.projects[p.cursor].ID); err != nil {
			p.err = err
		} else {
			p.message = fmt.Sprintf("Deleted project: %s (%d sessions)", name, n)
		}
		p.mode = projectsModeList
		return p.loadData

	case "n", "N", "esc":
		p.mode = projectsModeList
	}
	return nil
}

func (p *Projects) handleMoveKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		if p.clientCursor > 0 {
			p.clientCursor--
		}
	case "down", "j":
		if p.clientCursor < len(p.clients)-1 {
			p.clientCursor++
		}
	case "enter":
		clientID := p.clients[p.clientCursor].ID
		if err := repository.NewProjectRepo(p.db).SetClient(p.projects[p.cursor].ID, &clientID); err != nil {
			p.err = err
		} else {
			p.message = fmt.Sprintf("Moved to %s", p.clients[p.clientCursor].Name)
		}
		p.mode = projectsModeList
		return p.loadData

	case "esc":
		p.mode = projectsModeList
	}
	return nil
}

// ParseRate reads "<amount> [currency] [hourly|fixed]". Missing parts keep
// the given currency and hourly payment.
func ParseRate(s, currency string) (decimal.Decimal, string, bool, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return decimal.Zero, "", false, fmt.Errorf("rate is empty")
	}

	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return decimal.Zero, "", false, fmt.Errorf("invalid amount %q", fields[0])
	}
	if amount.IsNegative() {
		return decimal.Zero, "", false, fmt.Errorf("amount must not be negative")
	}

	hourly := true
	for _, f := range fields[1:] {
		switch strings.ToLower(f) {
		case "hourly", "h":
			hourly = true
		case "fixed", "f":
			hourly = false
		default:
			currency = strings.ToUpper(f)
		}
	}
	return amount, currency, hourly, nil
}

func paymentKind(hourly bool) string {
	if hourly {
		return "hourly"
	}
	return "fixed"
}

func (p *Projects) View() string {
	var b strings.Builder

	title := "PROJECTS"
	if p.clientFilter != nil {
		for _, c := range p.clients {
			if c.ID == *p.clientFilter {
				title = fmt.Sprintf("PROJECTS - %s", c.Name)
				break
			}
		}
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	if p.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if p.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", p.err)))
		b.WriteString("\n\n")
	}

	if p.message != "" {
		b.WriteString(SuccessStyle.Render(p.message))
		b.WriteString("\n\n")
	}

	switch p.mode {
	case projectsModeAdd, projectsModeEdit, projectsModeRate:
		label := map[projectsMode]string{
			projectsModeAdd:  "New project name:",
			projectsModeEdit: "Rename project:",
			projectsModeRate: "Rate (amount currency hourly|fixed):",
		}[p.mode]
		b.WriteString(label + "\n")
		b.WriteString(p.input.View())
		b.WriteString("\n\n")
		b.WriteString(HelpStyle.Render("[enter] Save  [esc] Cancel"))
		return b.String()

	case projectsModeDelete:
		if len(p.projects) > 0 {
			b.WriteString(WarningStyle.Render(fmt.Sprintf(
				"Delete project '%s' and all of its sessions? (y/n)",
				p.projects[p.cursor].Name,
			)))
			b.WriteString("\n")
			return b.String()
		}

	case projectsModeMove:
		b.WriteString("Assign to client:\n\n")
		for i, c := range p.clients {
			cursor := "  "
			style := NormalStyle
			if i == p.clientCursor {
				cursor = "> "
				style = SelectedStyle
			}
			b.WriteString(style.Render(fmt.Sprintf("%s%s", cursor, c.Name)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("[enter] Select  [esc] Cancel"))
		return b.String()
	}

	if len(p.projects) == 0 {
		b.WriteString(DimStyle.Render("No projects yet."))
		b.WriteString("\n\n")
	} else {
		for i, proj := range p.projects {
			cursor := "  "
			style := NormalStyle
			if i == p.cursor {
				cursor = "> "
				style = SelectedStyle
			}

			client := DimStyle.Render("(no client)")
			if proj.ClientName != "" {
				client = DimStyle.Render(fmt.Sprintf("(%s)", proj.ClientName))
			}

			line := fmt.Sprintf("%s%s %s - %d sessions, %s, %s %s",
				cursor,
				proj.Name,
				client,
				proj.SessionCount,
				p.format.Duration(proj.ActiveSeconds),
				p.format.Money(proj.Salary, proj.Currency),
				paymentKind(proj.HourlyPayment),
			)
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	help := "[a] Add  [e] Rename  [r] Rate  [d] Delete  [m] Assign client  [enter] Sessions  [q] Back"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}
