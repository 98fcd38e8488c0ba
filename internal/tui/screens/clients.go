package screens

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"

	"github.com/GwydionBr/life-manager/internal/db"
	"github.com/GwydionBr/life-manager/internal/models"
	"github.com/GwydionBr/life-manager/internal/repository"
	"github.com/GwydionBr/life-manager/internal/timeline"
)

// clientRollup sums up the work done for one client. The rollup with an
// empty ID collects the projects that have no client.
type clientRollup struct {
	ID       string
	Name     string
	Projects []models.Project
	Sessions int
	Seconds  int64
	Earnings map[string]decimal.Decimal // by currency
}

func (r clientRollup) unassigned() bool {
	return r.ID == ""
}

func (r clientRollup) label() string {
	if r.unassigned() {
		return "(no client)"
	}
	return r.Name
}

// loadRollups builds one rollup per client, plus one for unassigned projects
// when there are any.
func loadRollups(conn db.DBTX) ([]clientRollup, error) {
	clients, err := repository.NewClientRepo(conn).GetAll()
	if err != nil {
		return nil, err
	}
	sessions, err := repository.NewSessionRepo(conn).ListAll()
	if err != nil {
		return nil, err
	}
	byProject := make(map[string][]models.Session)
	for _, s := range sessions {
		byProject[s.ProjectID] = append(byProject[s.ProjectID], s)
	}

	projects := repository.NewProjectRepo(conn)
	rollups := make([]clientRollup, 0, len(clients)+1)
	for _, c := range clients {
		list, err := projects.GetByClientID(c.ID)
		if err != nil {
			return nil, err
		}
		rollups = append(rollups, rollUp(c.ID, c.Name, list, byProject))
	}

	orphans, err := projects.GetOrphans()
	if err != nil {
		return nil, err
	}
	if len(orphans) > 0 {
		rollups = append(rollups, rollUp("", "", orphans, byProject))
	}
	return rollups, nil
}

func rollUp(id, name string, projects []models.Project, byProject map[string][]models.Session) clientRollup {
	r := clientRollup{
		ID:       id,
		Name:     name,
		Projects: projects,
		Earnings: make(map[string]decimal.Decimal),
	}
	for _, p := range projects {
		for _, s := range byProject[p.ID] {
			r.Sessions++
			r.Seconds += timeline.ActiveSeconds(s)
			if earned := timeline.Earnings(s); !earned.IsZero() {
				r.Earnings[s.Payload.Currency] = r.Earnings[s.Payload.Currency].Add(earned)
			}
		}
	}
	return r
}

// earnings lists amounts per currency in code order, or "-" when nothing
// was earned at an hourly rate.
func (f Formatter) earnings(byCurrency map[string]decimal.Decimal) string {
	if len(byCurrency) == 0 {
		return "-"
	}
	currencies := make([]string, 0, len(byCurrency))
	for cur := range byCurrency {
		currencies = append(currencies, cur)
	}
	slices.Sort(currencies)

	parts := make([]string, len(currencies))
	for i, cur := range currencies {
		parts[i] = f.Money(byCurrency[cur], cur)
	}
	return strings.Join(parts, ", ")
}

type clientPrompt int

const (
	promptNone clientPrompt = iota
	promptAdd
	promptRename
	promptDelete
)

type Clients struct {
	db     *sql.DB
	format Formatter
	width  int
	height int

	rollups  []clientRollup
	cursor   int
	expanded bool
	prompt   clientPrompt
	input    textinput.Model
	loading  bool
	err      error
	message  string
}

func NewClients(db *sql.DB, format Formatter) *Clients {
	ti := textinput.New()
	ti.Placeholder = "Client name"
	ti.CharLimit = 100
	ti.Width = 40

	return &Clients{
		db:     db,
		format: format,
		input:  ti,
	}
}

func (c *Clients) SetSize(width, height int) {
	c.width = width
	c.height = height
}

type clientsDataMsg struct {
	rollups []clientRollup
	err     error
}

func (c *Clients) Init() tea.Cmd {
	c.loading = true
	c.prompt = promptNone
	c.message = ""
	return c.loadData
}

func (c *Clients) loadData() tea.Msg {
	rollups, err := loadRollups(c.db)
	return clientsDataMsg{rollups: rollups, err: err}
}

func (c *Clients) selected() (clientRollup, bool) {
	if c.cursor < 0 || c.cursor >= len(c.rollups) {
		return clientRollup{}, false
	}
	return c.rollups[c.cursor], true
}

func (c *Clients) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case clientsDataMsg:
		c.loading = false
		c.err = msg.err
		c.rollups = msg.rollups
		c.cursor = min(c.cursor, max(0, len(c.rollups)-1))
		return nil

	case RefreshMsg:
		return c.loadData

	case tea.KeyMsg:
		if c.prompt != promptNone {
			return c.answer(msg)
		}
		return c.browse(msg)
	}

	if c.prompt == promptAdd || c.prompt == promptRename {
		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		return cmd
	}
	return nil
}

func (c *Clients) browse(msg tea.KeyMsg) tea.Cmd {
	r, ok := c.selected()

	switch msg.String() {
	case "up", "k":
		c.cursor = max(0, c.cursor-1)
	case "down", "j":
		c.cursor = min(c.cursor+1, max(0, len(c.rollups)-1))
	case " ", "tab":
		c.expanded = !c.expanded
	case "a":
		c.ask(promptAdd, "")
	case "e":
		if ok && !r.unassigned() {
			c.ask(promptRename, r.Name)
		}
	case "d":
		if ok && !r.unassigned() {
			c.prompt = promptDelete
		}
	case "enter":
		if !ok {
			return nil
		}
		if r.unassigned() {
			return Navigate("projects")
		}
		return NavigateWithClient("projects", r.ID)
	case "q", "esc":
		return Navigate("dashboard")
	}
	return nil
}

func (c *Clients) ask(p clientPrompt, value string) {
	c.prompt = p
	c.input.SetValue(value)
	c.input.Focus()
}

func (c *Clients) answer(msg tea.KeyMsg) tea.Cmd {
	if c.prompt == promptDelete {
		switch msg.String() {
		case "y", "Y":
			c.message, c.err = c.remove()
			c.prompt = promptNone
			return c.loadData
		case "n", "N", "esc":
			c.prompt = promptNone
		}
		return nil
	}

	switch msg.String() {
	case "enter":
		if name := strings.TrimSpace(c.input.Value()); name != "" {
			c.message, c.err = c.save(name)
		}
		c.prompt = promptNone
		c.input.Blur()
		return c.loadData
	case "esc":
		c.prompt = promptNone
		c.input.Blur()
		return nil
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return cmd
}

func (c *Clients) save(name string) (string, error) {
	repo := repository.NewClientRepo(c.db)
	if c.prompt == promptAdd {
		if _, err := repo.Create(name); err != nil {
			return "", err
		}
		return "Created client: " + name, nil
	}

	r, _ := c.selected()
	if err := repo.Update(r.ID, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Renamed %s to %s", r.Name, name), nil
}

func (c *Clients) remove() (string, error) {
	r, _ := c.selected()
	if err := repository.NewClientRepo(c.db).Delete(r.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted client %s; %d projects are now unassigned", r.Name, len(r.Projects)), nil
}

func (c *Clients) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("CLIENTS"))
	b.WriteString("\n\n")

	if c.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}
	if c.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", c.err)))
		b.WriteString("\n\n")
	}
	if c.message != "" {
		b.WriteString(SuccessStyle.Render(c.message))
		b.WriteString("\n\n")
	}

	switch c.prompt {
	case promptAdd, promptRename:
		label := "New client name:"
		if c.prompt == promptRename {
			label = "Rename client:"
		}
		b.WriteString(label + "\n" + c.input.View() + "\n\n")
		b.WriteString(HelpStyle.Render("[enter] Save  [esc] Cancel"))
		return b.String()
	case promptDelete:
		r, _ := c.selected()
		b.WriteString(WarningStyle.Render(fmt.Sprintf(
			"Delete client '%s'? Its %d projects and their sessions are kept. (y/n)", r.Name, len(r.Projects))))
		b.WriteString("\n")
		return b.String()
	}

	if len(c.rollups) == 0 {
		b.WriteString(DimStyle.Render("No clients yet."))
		b.WriteString("\n\n")
	} else {
		c.writeRollups(&b)
	}

	b.WriteString(HelpStyle.Render("[a] Add  [e] Rename  [d] Delete  [space] Projects  [enter] Open  [q] Back"))
	return b.String()
}

func (c *Clients) writeRollups(b *strings.Builder) {
	nameWidth := 0
	for _, r := range c.rollups {
		nameWidth = max(nameWidth, runewidth.StringWidth(r.label()))
	}
	nameWidth = min(nameWidth, 30)

	var total int64
	for i, r := range c.rollups {
		total += r.Seconds

		cursor, style := "  ", NormalStyle
		if i == c.cursor {
			cursor, style = "> ", SelectedStyle
		}
		if r.unassigned() {
			style = DimStyle
		}

		name := runewidth.FillRight(runewidth.Truncate(r.label(), nameWidth, "…"), nameWidth)
		line := fmt.Sprintf("%s%s  %2d projects  %4d sessions  %9s  %s",
			cursor, name, len(r.Projects), r.Sessions, c.format.Duration(r.Seconds), c.format.earnings(r.Earnings))
		b.WriteString(style.Render(line))
		b.WriteString("\n")

		if i == c.cursor && c.expanded {
			for _, p := range r.Projects {
				b.WriteString(DimStyle.Render(fmt.Sprintf("      %s  %s %s",
					p.Name, c.format.Money(p.Salary, p.Currency), paymentKind(p.HourlyPayment))))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Worked in total: " + c.format.Duration(total)))
	b.WriteString("\n\n")
}
