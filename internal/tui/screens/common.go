package screens

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NavigateMsg is sent when navigation to another screen is requested
type NavigateMsg struct {
	Screen    string
	ClientID  *string
	ProjectID *string
}

func Navigate(screen string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen}
	}
}

func NavigateWithClient(screen string, clientID string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, ClientID: &clientID}
	}
}

func NavigateWithProject(screen string, projectID string) tea.Cmd {
	return func() tea.Msg {
		return NavigateMsg{Screen: screen, ProjectID: &projectID}
	}
}

// RefreshMsg is sent when data should be refreshed, either on request or
// because the database changed on disk.
type RefreshMsg struct{}

func Refresh() tea.Cmd {
	return func() tea.Msg {
		return RefreshMsg{}
	}
}

// Formatter renders numbers the way the configured locale writes them.
type Formatter struct {
	printer *message.Printer
}

func NewFormatter(tag language.Tag) Formatter {
	return Formatter{printer: message.NewPrinter(tag)}
}

// Money formats an amount with two decimals and its currency code.
func (f Formatter) Money(amount decimal.Decimal, currency string) string {
	v, _ := amount.Round(2).Float64()
	return f.printer.Sprintf("%.2f %s", v, currency)
}

// Duration formats seconds as hours and minutes, e.g. "12h 05m".
func (f Formatter) Duration(secs int64) string {
	d := time.Duration(secs) * time.Second
	h := int64(d / time.Hour)
	m := int64(d % time.Hour / time.Minute)
	return f.printer.Sprintf("%dh %s", h, fmt.Sprintf("%02dm", m))
}

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	NormalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	PartialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)
