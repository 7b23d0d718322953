package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"resizer/internal/pipeline"
)

// Model renders live batch progress from a stream of pipeline updates and
// quits when the stream is closed.
type Model struct {
	updates     <-chan pipeline.ProgressUpdate
	onInterrupt func()
	started     time.Time
	width       int
	total       int
	succeeded   int
	skipped     int
	failed      int
	bytes       int64
	interrupted bool
	quitting    bool
}

type doneMsg struct{}

type updateMsg pipeline.ProgressUpdate

// NewModel listens on updates. onInterrupt, if set, is called once when the
// user presses ctrl+c; the model keeps draining updates until the batch
// closes the channel.
func NewModel(updates <-chan pipeline.ProgressUpdate, onInterrupt func()) Model {
	return Model{updates: updates, onInterrupt: onInterrupt, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalDelta
		m.succeeded += msg.SucceededDelta
		m.skipped += msg.SkippedDelta
		m.failed += msg.FailedDelta
		m.bytes += msg.BytesDelta
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) done() int {
	return m.succeeded + m.skipped + m.failed
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1, float64(m.done())/float64(m.total))
	}

	elapsed := time.Since(m.started).Round(time.Millisecond)
	status := dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed))
	if m.interrupted {
		status = warnStyle.Render("Interrupted, finishing in-flight images...")
	}

	lines := []string{
		titleStyle.Render("resizer"),
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", m.done(), m.total)) +
			dimStyle.Render(fmt.Sprintf("  resized:%d skipped:%d failed:%d", m.succeeded, m.skipped, m.failed)),
		labelStyle.Render(fmt.Sprintf("Written: %s", FormatBytes(m.bytes))),
		status,
		barStyle.Render(renderBar(barWidth, ratio)),
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan pipeline.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
)
