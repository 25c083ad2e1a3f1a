package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"attrparse/internal/batch"
)

// rows beyond this are summarized in one line
const maxRows = 20

type progressModel struct {
	title      string
	events     <-chan batch.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []item
	index      map[string]int
	finished   int
	failed     int
	stageLabel string
	width      int
	done       bool
}

type item struct {
	name   string
	status string
	stage  batch.Stage
}

type eventMsg batch.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders batch progress
// until events is closed.
func NewProgressModel(title string, names []string, events <-chan batch.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]item, 0, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		items = append(items, item{name: name, status: "queued"})
		index[name] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(batch.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
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
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s %d/%d", m.title, m.finished, len(m.items))
	if m.failed > 0 {
		header += fmt.Sprintf(", %d failed", m.failed)
	}
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

	nameWidth := max(m.width-12-4, 20)
	shown := 0
	for _, it := range m.items {
		// long lists show only rows in progress or failed
		if len(m.items) > maxRows && (it.status == "done" || it.status == "queued") {
			continue
		}
		if shown == maxRows {
			break
		}
		shown++
		status := styleStatus(it.status).Render(fmt.Sprintf("%12s", it.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(it.name, nameWidth))
	}
	if hidden := len(m.items) - shown; hidden > 0 {
		fmt.Fprintf(&b, "  %12s %d more\n", "", hidden)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev batch.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Item == "" {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}
	idx, ok := m.index[ev.Item]
	if !ok {
		return nil
	}
	it := &m.items[idx]
	if it.status == "done" || it.status == "error" {
		return nil
	}
	if label != "" {
		it.status = label
		it.stage = ev.Stage
	}
	switch ev.Status {
	case batch.StatusDone:
		m.finished++
	case batch.StatusError:
		m.finished++
		m.failed++
	}

	total := 0.0
	for _, it := range m.items {
		if it.status == "done" || it.status == "error" {
			total += 1.0
		} else {
			total += progressFromStage(it.stage, it.status)
		}
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func progressFromStage(stage batch.Stage, status string) float64 {
	if status == "queued" {
		return 0
	}
	switch stage {
	case batch.StageParse:
		return 0.2
	case batch.StageTree:
		return 0.6
	case batch.StageEncode:
		return 0.8
	default:
		return 0
	}
}

func statusLabel(stage batch.Stage, status batch.Status) string {
	switch status {
	case batch.StatusQueued:
		return "queued"
	case batch.StatusDone:
		return "done"
	case batch.StatusError:
		return "error"
	case batch.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage batch.Stage) string {
	switch stage {
	case batch.StageParse:
		return "parsing"
	case batch.StageTree:
		return "unpacking"
	case batch.StageEncode:
		return "encoding"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "parsing", "unpacking", "encoding":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
