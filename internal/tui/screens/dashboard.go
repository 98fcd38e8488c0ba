package screens

import (
	"database/sql"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/GwydionBr/life-manager/internal/repository"
)

type Dashboard struct {
	db     *sql.DB
	format Formatter
	width  int
	height int

	projects      []repository.ProjectWithStats
	clients       []repository.ClientWithStats
	totalSeconds  int64
	totalSessions int
	loading       bool
	err           error
}

func NewDashboard(db *sql.DB, format Formatter) *Dashboard {
	return &Dashboard{
		db:      db,
		format:  format,
		loading: true,
	}
}

func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
}

type dashboardDataMsg struct {
	projects []repository.ProjectWithStats
	clients  []repository.ClientWithStats
	err      error
}

func (d *Dashboard) Init() tea.Cmd {
	d.loading = true
	return d.loadData
}

func (d *Dashboard) loadData() tea.Msg {
	projects, err := repository.NewProjectRepo(d.db).GetAllWithStats()
	if err != nil {
		return dashboardDataMsg{err: err}
	}

	clients, err := repository.NewClientRepo(d.db).GetAllWithStats()
	if err != nil {
		return dashboardDataMsg{err: err}
	}

	return dashboardDataMsg{projects: projects, clients: clients}
}

func (d *Dashboard) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.loading = false
		d.err = msg.err
		d.projects = msg.projects
		d.clients = msg.clients
		d.totalSeconds = 0
		d.totalSessions = 0
		for _, p := range d.projects {
			d.totalSeconds += p.ActiveSeconds
			d.totalSessions += p.SessionCount
		}
		return nil

	case RefreshMsg:
		return d.loadData

	case tea.KeyMsg:
		switch msg.String() {
		case "c":
			return Navigate("clients")
		case "p":
			return Navigate("projects")
		case "s":
			return Navigate("sessions")
		}
	}

	return nil
}

func (d *Dashboard) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("LIFE MANAGER"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render("Work Time Tracker"))
	b.WriteString("\n\n")

	if d.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}

	if d.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", d.err)))
		b.WriteString("\n")
		return b.String()
	}

	statsContent := fmt.Sprintf(
		"Sessions: %d\nWorked:   %s\nProjects: %d",
		d.totalSessions,
		d.format.Duration(d.totalSeconds),
		len(d.projects),
	)
	b.WriteString(BoxStyle.Render(statsContent))
	b.WriteString("\n\n")

	if len(d.clients) > 0 {
		b.WriteString(SubtitleStyle.Render("Clients"))
		b.WriteString("\n")
		for _, c := range d.clients {
			b.WriteString(fmt.Sprintf("  %s - %d projects, %d sessions\n",
				NormalStyle.Render(c.Name),
				c.ProjectCount,
				c.SessionCount,
			))
		}
	} else {
		b.WriteString(DimStyle.Render("No clients yet. Press 'c' to create one."))
	}

	b.WriteString("\n")

	help := "[s] Sessions  [p] Projects  [c] Clients  [q] Quit"
	b.WriteString(HelpStyle.Render(help))

	return b.String()
}
