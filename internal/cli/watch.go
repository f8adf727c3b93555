package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/onyx-admin/internal/client"
	"github.com/raphaelgruber/onyx-admin/internal/fetcher"
	"github.com/raphaelgruber/onyx-admin/internal/reconcile"
	"golang.org/x/term"
)

// Theme holds the color scheme for status output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// attemptStyle colors an attempt status by how far along it is.
func (t Theme) attemptStyle(s client.AttemptStatus) lipgloss.Style {
	switch s {
	case client.AttemptFailed, client.AttemptCanceled:
		return t.errorStyle()
	case client.AttemptCompletedWithErrors:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
	case client.AttemptSuccess:
		return t.completedStyle()
	case client.AttemptInProgress:
		return t.statusStyle()
	}
	return t.hintStyle()
}

// frame is one rendering of a watched screen.
type frame struct {
	Body string
	// Fraction drives the progress bar when ShowBar is set.
	Fraction float64
	ShowBar  bool
	// Done ends the watch.
	Done bool
	Err  error
}

// renderFunc builds a frame from the latest state of every watched key.
type renderFunc func(states map[string]fetcher.State) frame

// stateMsg carries a state delivered to subscription i. open is false once
// the subscription ended.
type stateMsg struct {
	i     int
	state fetcher.State
	open  bool
}

// watchModel is the bubbletea model that re-renders whenever a watched key
// is revalidated.
type watchModel struct {
	title    string
	subs     []*fetcher.Subscription
	ended    int
	states   map[string]fetcher.State
	render   renderFunc
	progress progress.Model
	theme    Theme
	frame    frame
	loaded   bool
	quitting bool
}

func newWatchModel(title string, subs []*fetcher.Subscription, render renderFunc) watchModel {
	return watchModel{
		title:  title,
		subs:   subs,
		states: make(map[string]fetcher.State, len(subs)),
		render: render,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

// waitFor blocks on the next state of subscription i.
func waitFor(i int, sub *fetcher.Subscription) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-sub.Updates()
		return stateMsg{i: i, state: s, open: ok}
	}
}

// Init starts listening on every subscription.
func (m watchModel) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.subs)+1)
	for i, sub := range m.subs {
		cmds = append(cmds, waitFor(i, sub))
	}
	cmds = append(cmds, m.progress.Init())
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		if !msg.open {
			m.ended++
			if m.ended == len(m.subs) {
				return m, tea.Quit
			}
			return m, nil
		}
		m.states[msg.state.Key] = msg.state
		m.frame = m.render(m.states)
		m.loaded = true
		if m.frame.Done {
			return m, tea.Quit
		}
		return m, waitFor(msg.i, m.subs[msg.i])

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current frame.
func (m watchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m watchModel) renderContent() string {
	var b strings.Builder
	b.WriteString(m.theme.statusStyle().Render(m.title))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString("Loading...\n")
		return b.String()
	}
	if m.frame.ShowBar {
		fmt.Fprintf(&b, "%s %3.0f%%\n\n", m.progress.ViewAs(m.frame.Fraction), m.frame.Fraction*100)
	}
	b.WriteString(m.frame.Body)
	if m.frame.Err != nil {
		b.WriteString(m.theme.errorStyle().Render("\n" + m.frame.Err.Error()))
		b.WriteString("\n")
	}
	if !m.frame.Done && !m.quitting {
		b.WriteString(m.theme.hintStyle().Render("\nPress q to stop watching"))
		b.WriteString("\n")
	}
	return b.String()
}

// runWatch shows render live, revalidating keys every poll interval until
// the frame is done or the user quits. Without a terminal on stdout it
// renders once and returns.
func runWatch(ctx context.Context, title string, keys []string, render renderFunc) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return renderOnce(ctx, keys, render)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cache := sess.Cache()
	subs := make([]*fetcher.Subscription, len(keys))
	for i, key := range keys {
		subs[i] = cache.Poll(ctx, key, cfg.PollInterval)
	}
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	finalModel, err := tea.NewProgram(newWatchModel(title, subs, render)).Run()
	if err != nil {
		return fmt.Errorf("watch UI error: %w", err)
	}
	if m, ok := finalModel.(watchModel); ok && !m.quitting {
		return m.frame.Err
	}
	return nil
}

// renderOnce loads every key and prints a single frame.
func renderOnce(ctx context.Context, keys []string, render renderFunc) error {
	states := make(map[string]fetcher.State, len(keys))
	for _, key := range keys {
		states[key] = sess.Cache().Get(ctx, key)
	}
	f := render(states)
	fmt.Print(f.Body)
	return f.Err
}

// loadingFrame turns a not-yet-loaded view into a placeholder frame and
// passes other errors through.
func loadingFrame(err error) frame {
	if errors.Is(err, fetcher.ErrNotLoaded) {
		return frame{Body: "Loading...\n"}
	}
	return frame{Err: err}
}

// indexingRows formats connector statuses as a table.
func indexingRows(theme Theme, rows []client.ConnectorIndexingStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s %-32s %-14s %-24s %8s\n", "PAIR", "NAME", "SOURCE", "STATUS", "DOCS")
	for _, r := range rows {
		status := reconcile.EffectiveStatus(r)
		label := fmt.Sprintf("%-24s", status)
		docs := r.DocsIndexed
		if r.LatestIndexAttempt != nil && r.LatestIndexAttempt.TotalDocsIndexed > docs {
			docs = r.LatestIndexAttempt.TotalDocsIndexed
		}
		fmt.Fprintf(&b, "%-6d %-32s %-14s %s %8d\n",
			r.CCPairID, truncate(r.Name, 32), r.Connector.Source, theme.attemptStyle(status).Render(label), docs)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
