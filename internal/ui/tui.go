package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer draws build progress as a live bubbletea view. The program
// starts with the first event and exits on Complete or Stop.
type TUIRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	model   *buildModel
	program *tea.Program
	done    chan struct{}
	stopped bool
}

// NewTUIRenderer creates a TUI renderer. It fails on non-TTY output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}
	model := newBuildModel()
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}
	return &TUIRenderer{
		out:   cfg.Output,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// start must be called with the lock held.
func (r *TUIRenderer) start() {
	if r.program != nil || r.stopped {
		return
	}
	// No input: the build is not interactive and stdin stays untouched.
	r.program = tea.NewProgram(r.model, tea.WithOutput(r.out), tea.WithInput(nil))
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start()
	if r.program != nil && !r.stopped {
		r.program.Send(progressMsg(event))
	}
}

// Complete implements Renderer. It waits for the final frame.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start()
	if r.program == nil || r.stopped {
		return
	}
	r.program.Send(completeMsg(stats))
	r.stopped = true
	r.wait()
}

// Stop ends the view without a summary. Safe after Complete.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil || r.stopped {
		r.stopped = true
		return nil
	}
	r.stopped = true
	r.program.Quit()
	r.wait()
	return nil
}

func (r *TUIRenderer) wait() {
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		// an unresponsive terminal must not hang the command
	}
}

// Message types for bubbletea.
type (
	progressMsg ProgressEvent
	completeMsg CompletionStats
)

// buildStages are the stages shown in the header, in order.
var buildStages = []Stage{StageLoading, StageLexical, StageEmbedding, StageVector}

type stageState struct {
	started bool
	done    bool
	current int
	total   int
	message string
}

// buildModel is the bubbletea model for the index build.
type buildModel struct {
	stages   map[Stage]*stageState
	complete bool
	stats    CompletionStats
	width    int
	spinner  spinner.Model
	bar      progress.Model
	styles   Styles
}

func newBuildModel() *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	stages := make(map[Stage]*stageState, len(buildStages))
	for _, st := range buildStages {
		stages[st] = &stageState{}
	}

	return &buildModel{
		stages:  stages,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *buildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-30, 20)

	case progressMsg:
		m.apply(ProgressEvent(msg))

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		for _, st := range m.stages {
			st.started, st.done = true, true
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply records an event. Lexical and embedding run side by side after
// loading; the vector stage starts only when both are done.
func (m *buildModel) apply(event ProgressEvent) {
	st, ok := m.stages[event.Stage]
	if !ok {
		return
	}
	st.started = true
	st.current, st.total = event.Current, event.Total
	if event.Message != "" {
		st.message = event.Message
	}

	switch event.Stage {
	case StageLexical, StageEmbedding:
		m.stages[StageLoading].done = true
	case StageVector:
		m.stages[StageLoading].done = true
		m.stages[StageLexical].done = true
		m.stages[StageEmbedding].done = true
	}
	if event.Stage == StageEmbedding && event.Total > 0 && event.Current >= event.Total {
		st.done = true
	}
}

// View implements tea.Model.
func (m *buildModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	lines := []string{
		m.styles.Header.Render("Building scene indexes"),
		m.renderStages(),
	}
	if bar := m.renderEmbedding(); bar != "" {
		lines = append(lines, bar)
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *buildModel) renderStages() string {
	parts := make([]string, 0, len(buildStages))
	for _, stage := range buildStages {
		st := m.stages[stage]
		name := stage.Icon()
		switch {
		case st.done:
			parts = append(parts, m.styles.Success.Render("● "+name))
		case st.started:
			parts = append(parts, m.styles.Score.Render(m.spinner.View()+" "+name))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+name))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *buildModel) renderEmbedding() string {
	st := m.stages[StageEmbedding]
	if !st.started || st.total == 0 {
		return ""
	}
	pct := float64(st.current) / float64(st.total)
	line := fmt.Sprintf("%s  %s  %s",
		m.bar.ViewAs(pct),
		m.styles.Score.Render(fmt.Sprintf("%3.0f%%", pct*100)),
		m.styles.Label.Render(fmt.Sprintf("%d / %d summaries", st.current, st.total)))
	if st.message != "" {
		line += m.styles.Dim.Render("  " + st.message)
	}
	return line
}

func (m *buildModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render("✓ Engine ready"),
		fmt.Sprintf("%s   %d", m.styles.Label.Render("Scenes:"), m.stats.Scenes),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), formatDuration(m.stats.Duration)),
	}
	if e := m.stats.Embedder; e.Backend != "" {
		lines = append(lines, fmt.Sprintf("%s %s (%s, %d dims)",
			m.styles.Label.Render("Embedder:"), e.Backend, e.Model, e.Dimensions))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentDim)).
		Padding(0, 1)
	return panel.Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration rounds sub-second builds to milliseconds and longer ones
// to seconds.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm %ds", m, s)
}

// Stop ends r if it holds a running view.
func Stop(r Renderer) {
	if s, ok := r.(interface{ Stop() error }); ok {
		_ = s.Stop()
	}
}

var _ Renderer = (*TUIRenderer)(nil)
