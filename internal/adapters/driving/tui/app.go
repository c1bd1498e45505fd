package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// App is the ask-and-rate TUI following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap

	question *input.QuestionInput
	sources  *list.SourceList
	bar      *status.Bar

	currentView messages.ViewType

	// result is the answer on screen, nil before the first question.
	result *domain.ResolveResult

	// excluded accumulates ticket IDs dropped by re-asks of the same question.
	excluded []string

	// rated is the polarity recorded for the current answer, empty if unrated.
	rated domain.Polarity

	askedAt time.Time

	overview *driving.Overview
	err      error

	width  int
	height int
	ready  bool

	// now is swapped in tests.
	now func() time.Time
}

var _ tea.Model = (*App)(nil)

// NewApp builds the model. Ports must carry at least a resolver.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingResolver)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keys:        km,
		question:    input.NewQuestionInput(s),
		sources:     list.NewSourceList(s),
		bar:         status.NewBar(s, km),
		currentView: messages.ViewAsk,
		now:         time.Now,
	}, nil
}

// WithContext sets the context passed to every port call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("effortqa"),
		a.question.Init(),
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AnswerReady:
		a.showResult(msg.Result)
		return a, nil

	case messages.FeedbackRecorded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.rated = msg.Polarity
		a.bar.Rated(ratingMessage(msg.Polarity, msg.Outcome))
		return a, nil

	case messages.StatsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.overview = msg.Overview
		return a, nil

	case messages.ViewChanged:
		return a, a.switchView(msg.View)

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewHelp, messages.ViewStats:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Back, a.keys.Help, a.keys.Stats):
			return a, a.switchView(messages.ViewAsk)
		}
		return a, nil

	case messages.ViewAsk:
	}

	if a.question.Focused() {
		return a.handleTyping(msg)
	}
	return a.handleAnswerKeys(msg)
}

// handleTyping routes keys while the question input has focus.
func (a *App) handleTyping(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		q := a.question.Value()
		if q == "" {
			return a, nil
		}
		a.excluded = nil
		return a, a.ask(q, nil)
	case tea.KeyEsc:
		if a.result != nil {
			a.question.Blur()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.question, cmd = a.question.Update(msg)
	return a, cmd
}

// handleAnswerKeys routes keys while an answer is on screen.
func (a *App) handleAnswerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Accept):
		return a, a.rate(domain.PolarityAccepted)
	case key.Matches(msg, a.keys.Reject):
		return a, a.rate(domain.PolarityRejected)
	case key.Matches(msg, a.keys.Reask):
		return a, a.reask()
	case key.Matches(msg, a.keys.NewQuestion):
		a.question.Reset()
		return a, a.question.Focus()
	case key.Matches(msg, a.keys.Stats):
		return a, a.switchView(messages.ViewStats)
	case key.Matches(msg, a.keys.Help):
		return a, a.switchView(messages.ViewHelp)
	case key.Matches(msg, a.keys.Up, a.keys.Down):
		a.sources, _ = a.sources.Update(msg)
	}
	return a, nil
}

func (a *App) ask(question string, exclude []string) tea.Cmd {
	a.question.Blur()
	a.rated = ""
	a.err = nil
	a.askedAt = a.now()
	a.bar.Asking(len(exclude))

	ctx := a.ctx
	resolver := a.ports.Resolver
	return func() tea.Msg {
		var result *domain.ResolveResult
		if len(exclude) > 0 {
			result = resolver.ResolveExcluding(ctx, question, exclude)
		} else {
			result = resolver.Resolve(ctx, question)
		}
		return messages.AnswerReady{Result: result}
	}
}

// reask repeats the question without the tickets cited so far.
func (a *App) reask() tea.Cmd {
	if a.result == nil {
		return nil
	}
	ids := a.sources.TicketIDs()
	if len(ids) == 0 {
		a.bar.Failed("no ticket sources to exclude")
		return nil
	}
	a.excluded = appendUnique(a.excluded, ids...)
	return a.ask(a.result.Question, a.excluded)
}

func (a *App) rate(p domain.Polarity) tea.Cmd {
	if a.result == nil {
		return nil
	}
	if !a.result.FeedbackEligible {
		a.bar.Failed("this answer cannot be rated")
		return nil
	}

	ctx := a.ctx
	feedback := a.ports.Feedback
	sub := domain.FeedbackSubmission{
		Question: a.result.Question,
		Answer:   a.result.Answer,
		Sources:  a.result.Sources,
		Polarity: p,
		Reporter: "tui",
	}
	return func() tea.Msg {
		outcome, err := feedback.Record(ctx, sub)
		return messages.FeedbackRecorded{Polarity: p, Outcome: outcome, Err: err}
	}
}

func (a *App) loadStats() tea.Cmd {
	if a.ports.Stats == nil {
		return nil
	}
	ctx := a.ctx
	stats := a.ports.Stats
	now := a.now()
	return func() tea.Msg {
		o, err := stats.Overview(ctx, now)
		return messages.StatsLoaded{Overview: o, Err: err}
	}
}

func (a *App) switchView(v messages.ViewType) tea.Cmd {
	a.currentView = v
	switch v {
	case messages.ViewStats:
		a.bar.Resume(false)
		return a.loadStats()
	case messages.ViewHelp:
		a.bar.Help()
	case messages.ViewAsk:
		a.bar.Resume(a.result != nil)
	}
	return nil
}

func (a *App) showResult(r *domain.ResolveResult) {
	a.result = r
	if r == nil {
		a.sources.SetSources(nil)
		a.bar.Ready()
		return
	}
	a.sources.SetSources(r.Sources)
	if r.IsError() {
		a.bar.Failed(r.Err)
		return
	}
	var elapsed time.Duration
	if !a.askedAt.IsZero() {
		elapsed = a.now().Sub(a.askedAt)
	}
	a.bar.Answered(len(r.Sources), elapsed)
}

func (a *App) setError(err error) {
	a.err = err
	a.bar.Failed(err.Error())
}

func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewStats:
		body = a.viewStats()
	case messages.ViewHelp:
		body = a.viewHelp()
	default:
		body = a.viewAsk()
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, "", a.bar.View())
}

func (a *App) viewAsk() string {
	parts := []string{a.styles.Title.Render("effortqa"), "", a.question.View()}
	if a.result == nil {
		return strings.Join(parts, "\n")
	}

	header := a.styles.StateBadge(a.result.State)
	if a.result.Strategy != "" {
		header += " " + a.styles.Muted.Render(a.result.Strategy)
	}
	if a.rated != "" {
		header += " " + a.styles.Success.Render("["+string(a.rated)+"]")
	}

	answerWidth := a.width - 4
	if answerWidth < 20 {
		answerWidth = 20
	}
	parts = append(parts, "", header, a.styles.Answer.Width(answerWidth).Render(a.result.Answer))
	if a.result.Reason != "" {
		parts = append(parts, a.styles.Muted.Render("reason: "+a.result.Reason))
	}
	parts = append(parts, "", a.sources.View())
	return strings.Join(parts, "\n")
}

func (a *App) viewStats() string {
	lines := []string{a.styles.Title.Render("Statistics"), ""}
	switch {
	case a.ports.Stats == nil:
		lines = append(lines, a.styles.Muted.Render("Statistics are not available."))
	case a.overview == nil:
		lines = append(lines, a.styles.Muted.Render("Loading..."))
	default:
		o := a.overview
		if o.Effort != nil {
			lines = append(lines,
				a.styles.Subtitle.Render("Effort"),
				fmt.Sprintf("  Tickets: %d", o.Effort.TotalTickets),
				fmt.Sprintf("  Total: %s M/D", domain.FormatEffort(o.Effort.TotalEffort)),
				fmt.Sprintf("  Average: %s M/D", domain.FormatEffort(o.Effort.AverageEffort)),
				fmt.Sprintf("  Unclassified: %d", o.Effort.Unclassified),
				"")
		}
		lines = append(lines,
			a.styles.Subtitle.Render("Feedback"),
			fmt.Sprintf("  Accepted: %d  Rejected: %d", o.Accepted, o.Rejected))
		if w := o.Feedback; w != nil {
			lines = append(lines, fmt.Sprintf("  Week %d-W%02d: %d served, %d accepted (%.0f%%)",
				w.Year, w.Week, w.AnswersServed, w.Accepted, w.Ratio*100))
		}
		lines = append(lines, "", fmt.Sprintf("  Indexed documents: %d", o.IndexDocuments))
	}
	lines = append(lines, "", a.styles.Help.Render("[esc] back"))
	return strings.Join(lines, "\n")
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString("Question:\n  (type)      Enter a question\n  enter       Ask\n  esc         Back to the answer\n\n")
	for _, group := range a.keys.FullHelp() {
		for _, kb := range group {
			h := kb.Help()
			fmt.Fprintf(&b, "  %-11s %s\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run takes over the terminal until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Result returns the answer on screen.
func (a *App) Result() *domain.ResolveResult {
	return a.result
}

// Excluded returns the ticket IDs excluded by re-asks.
func (a *App) Excluded() []string {
	return a.excluded
}

// Rated returns the polarity recorded for the current answer.
func (a *App) Rated() domain.Polarity {
	return a.rated
}

func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err is the last error shown in the status bar.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.question.SetWidth(width)
	a.bar.SetWidth(width)
	// Leave room for the input, the answer box and the status bar.
	a.sources.SetDimensions(width, height-14)
}

func ratingMessage(p domain.Polarity, o *domain.FeedbackOutcome) string {
	msg := "Accepted"
	if p == domain.PolarityRejected {
		msg = "Rejected"
	}
	if o == nil {
		return msg
	}
	switch {
	case o.TypeChanged:
		msg += " (changed from earlier judgement)"
	case o.AnswerReplaced:
		msg += " (replaced previous answer)"
	case !o.IsNew:
		msg += fmt.Sprintf(" (seen %d times)", o.Count)
	}
	return msg
}

func appendUnique(dst []string, ids ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, id := range dst {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			dst = append(dst, id)
		}
	}
	return dst
}
