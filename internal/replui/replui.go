// Package replui provides the interactive terminal chat REPL for driving a
// SmartRouter turn by turn from a shell.
package replui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/metrics"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	fgColor      = lipgloss.Color("#F9FAFB")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	userStyle      = lipgloss.NewStyle().Foreground(fgColor).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(successColor)
	errStyle       = lipgloss.NewStyle().Foreground(errorColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// Router is the subset of *router.SmartRouter the REPL depends on.
type Router interface {
	HandleTurn(ctx context.Context, sessionID, userText string) (string, error)
	CacheContents() []toolapi.Handle
	HealthSnapshot() []health.Record
	RecentMetrics(n int) []metrics.Event
}

// App is the chat REPL's bubbletea model.
type App struct {
	router    Router
	sessionID string

	viewport viewport.Model
	input    textinput.Model
	lines    []string

	width, height int
	waiting       bool
	err           error
}

// New creates a chat REPL bound to router, running turns under sessionID.
func New(r Router, sessionID string) *App {
	ti := textinput.New()
	ti.Placeholder = "Ask something..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 80

	vp := viewport.New(80, 20)

	return &App{
		router:    r,
		sessionID: sessionID,
		viewport:  vp,
		input:     ti,
	}
}

// Run starts the REPL and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

type turnResultMsg struct {
	text string
	err  error
}

func (a *App) runTurn(text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := a.router.HandleTurn(context.Background(), a.sessionID, text)
		return turnResultMsg{text: reply, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "enter":
			if a.waiting {
				return a, nil
			}
			text := strings.TrimSpace(a.input.Value())
			if text == "" {
				return a, nil
			}
			if text == "/quit" || text == "/exit" {
				return a, tea.Quit
			}
			a.input.SetValue("")
			a.err = nil
			a.lines = append(a.lines, userStyle.Render("you: ")+text)
			a.viewport.SetContent(strings.Join(a.lines, "\n"))
			a.viewport.GotoBottom()
			a.waiting = true
			return a, a.runTurn(text)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 8

	case turnResultMsg:
		a.waiting = false
		if msg.err != nil {
			a.err = msg.err
			a.lines = append(a.lines, errStyle.Render("error: ")+msg.err.Error())
		} else {
			a.lines = append(a.lines, assistantStyle.Render("router: ")+msg.text)
		}
		a.viewport.SetContent(strings.Join(a.lines, "\n"))
		a.viewport.GotoBottom()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("toolrouter") + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	b.WriteString(a.viewport.View() + "\n\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()) + "\n")

	status := fmt.Sprintf(" cached: %d | session: %s | Ctrl+C:quit /quit:exit", len(a.router.CacheContents()), a.sessionID)
	if a.waiting {
		status = " thinking..." + status
	}
	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(status))
	b.WriteString("\n" + helpStyle.Render("type a message and press enter"))

	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
