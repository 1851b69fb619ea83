// Package ui renders compilation progress in the terminal.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"weave/internal/buildpipeline"
)

const statusWidth = 15

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = map[string]lipgloss.Style{
		"done":    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		"checked": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"skipped": lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// Option configures the progress model.
type Option func(*progressModel)

// WithBase shows file paths relative to dir when they lie below it.
func WithBase(dir string) Option {
	return func(m *progressModel) { m.base = dir }
}

type progressModel struct {
	title      string
	base       string
	events     <-chan buildpipeline.Event
	spinner    spinner.Model
	bar        progress.Model
	items      []fileItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type fileItem struct {
	path   string
	status string
	stage  buildpipeline.Stage
	final  bool
}

type eventMsg buildpipeline.Event
type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model that follows the events of one
// compilation. Files may be listed up front or appear with their first event.
// The model quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event, opts ...Option) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = workingStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, file := range files {
		m.track(file)
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.next())
	case closedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 && m.stageLabel == "" {
		return ""
	}
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(m.displayName(item.path), nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	if footer := m.tally(); footer != "" {
		b.WriteString(footerStyle.Render(footer))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) track(file string) int {
	if idx, ok := m.index[file]; ok {
		return idx
	}
	m.items = append(m.items, fileItem{path: file, status: "queued"})
	m.index[file] = len(m.items) - 1
	return len(m.items) - 1
}

func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.File == "" {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx := m.track(ev.File)
	if label != "" {
		item := &m.items[idx]
		item.status = label
		item.stage = ev.Stage
		item.final = ev.Status == buildpipeline.StatusError ||
			(ev.Stage == buildpipeline.StageEmit && ev.Status != buildpipeline.StatusWorking)
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		if item.final {
			total++
			continue
		}
		total += progressFromStage(item.stage, item.status)
	}
	return total / float64(len(m.items))
}

// tally summarizes finished files, e.g. "2 emitted, 1 failed".
func (m *progressModel) tally() string {
	var emitted, skipped, failed int
	for _, item := range m.items {
		if !item.final {
			continue
		}
		switch item.status {
		case "done":
			emitted++
		case "skipped":
			skipped++
		case "error":
			failed++
		}
	}
	var parts []string
	for _, p := range []struct {
		n    int
		word string
	}{{emitted, "emitted"}, {skipped, "skipped"}, {failed, "failed"}} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.word))
		}
	}
	return strings.Join(parts, ", ")
}

func (m *progressModel) displayName(path string) string {
	if m.base == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(m.base, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func progressFromStage(stage buildpipeline.Stage, status string) float64 {
	switch stage {
	case buildpipeline.StageCheck:
		if status == "checked" {
			return 0.5
		}
		return 0.2
	case buildpipeline.StageEmit:
		return 0.7
	default:
		return 0.0
	}
}

func statusLabel(stage buildpipeline.Stage, status buildpipeline.Status) string {
	switch status {
	case buildpipeline.StatusQueued:
		return "queued"
	case buildpipeline.StatusDone:
		if stage == buildpipeline.StageCheck {
			return "checked"
		}
		return "done"
	case buildpipeline.StatusSkipped:
		return "skipped"
	case buildpipeline.StatusError:
		return "error"
	case buildpipeline.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage buildpipeline.Stage) string {
	switch stage {
	case buildpipeline.StageConfig:
		return "configuring"
	case buildpipeline.StageCheck:
		return "checking"
	case buildpipeline.StagePlugins:
		return "loading plugins"
	case buildpipeline.StageEmit:
		return "emitting"
	case buildpipeline.StageReport:
		return "reporting"
	case buildpipeline.StageRun:
		return "running"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	if st, ok := statusStyle[status]; ok {
		return st
	}
	if status == "queued" || status == "" {
		return idleStyle
	}
	return workingStyle
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
