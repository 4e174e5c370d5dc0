package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/fusionqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// Rows used by everything except the transcript.
const chromeHeight = 7

// answerMsg carries a finished QA call.
type answerMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

// statsMsg carries graph statistics for the header.
type statsMsg struct {
	stats domain.GraphStats
	err   error
}

// App is the chat model.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model

	history      []exchange
	pending      string
	nResults     int
	includeGraph bool
	stats        *domain.GraphStats

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates the chat model.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.CharLimit = 4000
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Muted

	nResults := ports.Defaults.NResults
	if nResults <= 0 {
		nResults = domain.DefaultNResults
	}

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keys:         keymap.DefaultKeyMap(),
		input:        ti,
		spinner:      sp,
		viewport:     viewport.New(80, 24-chromeHeight),
		help:         help.New(),
		nResults:     nResults,
		includeGraph: ports.Defaults.IncludeGraph,
		width:        80,
		height:       24,
	}, nil
}

// WithContext sets the context passed to service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init starts the cursor blink and loads graph statistics.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.loadStats())
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case answerMsg:
		a.pending = ""
		a.history = append(a.history, exchange{question: msg.question, answer: msg.answer, err: msg.err})
		a.refresh()
		return a, a.loadStats()

	case statsMsg:
		if msg.err == nil {
			stats := msg.stats
			a.stats = &stats
		}
		return a, nil

	case spinner.TickMsg:
		if a.pending == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Ask):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.pending != "" {
			return a, nil
		}
		a.pending = question
		a.input.Reset()
		return a, tea.Batch(a.ask(question), a.spinner.Tick)

	case key.Matches(msg, a.keys.ToggleGraph):
		a.includeGraph = !a.includeGraph
		return a, nil

	case key.Matches(msg, a.keys.Clear):
		a.history = nil
		a.refresh()
		return a, nil

	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case key.Matches(msg, a.keys.ScrollUp), key.Matches(msg, a.keys.ScrollDown):
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) ask(question string) tea.Cmd {
	q := domain.Question{Text: question, NResults: a.nResults, IncludeGraph: a.includeGraph}
	return func() tea.Msg {
		answer, err := a.ports.QA.Answer(a.ctx, q)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

func (a *App) loadStats() tea.Cmd {
	if a.ports.Graph == nil {
		return nil
	}
	return func() tea.Msg {
		stats, err := a.ports.Graph.Stats(a.ctx)
		return statsMsg{stats: stats, err: err}
	}
}

func (a *App) refresh() {
	a.viewport.SetContent(renderTranscript(a.styles, a.history, a.width))
	a.viewport.GotoBottom()
}

// View renders the chat.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	header := a.styles.Header.Render("FusionQA")
	if a.stats != nil {
		header += a.styles.Muted.Render(fmt.Sprintf("  %d entities, %d relations",
			a.stats.NodeCount, a.stats.EdgeCount))
	}

	var pending string
	if a.pending != "" {
		pending = a.spinner.View() + " " + a.styles.Muted.Render("Answering: "+a.pending)
	}

	graph := "graph on"
	if !a.includeGraph {
		graph = "graph off"
	}
	status := a.styles.Status.Render(fmt.Sprintf("%s, %d results", graph, a.nResults)) +
		"  " + a.help.View(a.keys)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		a.viewport.View(),
		pending,
		a.styles.Input.Render(a.input.View()),
		status,
	)
}

// SetDimensions resizes the transcript and input.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 3)
	a.input.Width = max(width-8, 10)
	a.help.Width = width
	a.refresh()
}

// History returns the number of answered questions.
func (a *App) History() int {
	return len(a.history)
}

// Pending returns the question being answered, if any.
func (a *App) Pending() string {
	return a.pending
}

// IncludeGraph reports whether questions traverse the graph.
func (a *App) IncludeGraph() bool {
	return a.includeGraph
}

// Run starts the chat in the alternate screen and blocks until it exits.
func Run(ctx context.Context, ports *Ports) error {
	app, err := NewApp(ports)
	if err != nil {
		return err
	}
	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
