package tui

import (
	"database/sql"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"

	"github.com/GwydionBr/life-manager/internal/config"
	"github.com/GwydionBr/life-manager/internal/tracker"
	"github.com/GwydionBr/life-manager/internal/tui/screens"
)

type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenClients
	ScreenProjects
	ScreenSessions
)

// dbChangedMsg is sent when the database file changed on disk.
type dbChangedMsg struct{}

type App struct {
	db            *sql.DB
	cfg           *config.Config
	tracker       *tracker.Tracker
	changes       <-chan struct{}
	currentScreen Screen
	width         int
	height        int

	// Screen models
	dashboard *screens.Dashboard
	clients   *screens.Clients
	projects  *screens.Projects
	sessions  *screens.Sessions
}

// NewApp builds the TUI. changes may be nil when no watcher is running.
func NewApp(db *sql.DB, cfg *config.Config, t *tracker.Tracker, changes <-chan struct{}) *App {
	return &App{
		db:            db,
		cfg:           cfg,
		tracker:       t,
		changes:       changes,
		currentScreen: ScreenDashboard,
	}
}

func (a *App) Init() tea.Cmd {
	tag, err := a.cfg.Language()
	if err != nil {
		tag = language.AmericanEnglish
	}
	format := screens.NewFormatter(tag)

	a.dashboard = screens.NewDashboard(a.db, format)
	a.clients = screens.NewClients(a.db, format)
	a.projects = screens.NewProjects(a.db, a.tracker, a.cfg.DefaultCurrency, format)
	a.sessions = screens.NewSessions(a.db, a.tracker, format)

	return tea.Batch(a.dashboard.Init(), a.waitForChange())
}

func (a *App) waitForChange() tea.Cmd {
	if a.changes == nil {
		return nil
	}
	changes := a.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return dbChangedMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.currentScreen == ScreenDashboard {
				return a, tea.Quit
			}
			// Let individual screens handle 'q' for going back
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.dashboard.SetSize(msg.Width, msg.Height)
		a.clients.SetSize(msg.Width, msg.Height)
		a.projects.SetSize(msg.Width, msg.Height)
		a.sessions.SetSize(msg.Width, msg.Height)

	case screens.NavigateMsg:
		return a.handleNavigation(msg)

	case dbChangedMsg:
		return a, tea.Batch(a.updateScreen(screens.RefreshMsg{}), a.waitForChange())
	}

	return a, a.updateScreen(msg)
}

func (a *App) updateScreen(msg tea.Msg) tea.Cmd {
	switch a.currentScreen {
	case ScreenDashboard:
		return a.dashboard.Update(msg)
	case ScreenClients:
		return a.clients.Update(msg)
	case ScreenProjects:
		return a.projects.Update(msg)
	case ScreenSessions:
		return a.sessions.Update(msg)
	}
	return nil
}

func (a *App) handleNavigation(msg screens.NavigateMsg) (tea.Model, tea.Cmd) {
	switch msg.Screen {
	case "dashboard":
		a.currentScreen = ScreenDashboard
		return a, a.dashboard.Init()
	case "clients":
		a.currentScreen = ScreenClients
		return a, a.clients.Init()
	case "projects":
		// coming back from a project's sessions keeps the client filter
		if a.currentScreen != ScreenSessions {
			a.projects.SetClientFilter(msg.ClientID)
		}
		a.currentScreen = ScreenProjects
		return a, a.projects.Init()
	case "sessions":
		a.currentScreen = ScreenSessions
		a.sessions.SetProjectFilter(msg.ProjectID)
		return a, a.sessions.Init()
	}
	return a, nil
}

func (a *App) View() string {
	var content string

	switch a.currentScreen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenClients:
		content = a.clients.View()
	case ScreenProjects:
		content = a.projects.View()
	case ScreenSessions:
		content = a.sessions.View()
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Render(content)
}

func Run(db *sql.DB, cfg *config.Config, t *tracker.Tracker, changes <-chan struct{}) error {
	app := NewApp(db, cfg, t, changes)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
