package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"gard/internal/driver"
)

// stageInfo: подпись и доля готовности файла на этом этапе.
var stageInfo = map[driver.Stage]struct {
	label  string
	weight float64
}{
	driver.StageQueued:  {"queued", 0},
	driver.StageParse:   {"parsing", 0.2},
	driver.StageImports: {"imports", 0.6},
	driver.StageFormat:  {"fmt-check", 0.8},
}

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleWorking = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const statusColumn = 10

type fileRow struct {
	path   string
	stage  driver.Stage
	status driver.Status
}

func (r fileRow) finished() bool {
	return r.status == driver.StatusDone || r.status == driver.StatusError
}

func (r fileRow) label() (string, lipgloss.Style) {
	switch r.status {
	case driver.StatusDone:
		return "ok", styleOK
	case driver.StatusError:
		return "error", styleFailed
	case driver.StatusWorking:
		return stageInfo[r.stage].label, styleWorking
	}
	return "queued", styleIdle
}

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	bar     progress.Model
	rows    []fileRow
	byPath  map[string]int
	failed  int
	width   int
	closed  bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel renders `gard check` progress from events and quits once
// the channel is closed.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	m := &progressModel{
		title:   title,
		events:  events,
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(styleWorking)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(60)),
		rows:    make([]fileRow, len(files)),
		byPath:  make(map[string]int, len(files)),
		width:   80,
	}
	for i, f := range files {
		m.rows[i] = fileRow{path: f}
		m.byPath[f] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next)
}

// next blocks on the event channel inside a tea.Cmd.
func (m *progressModel) next() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return doneMsg{}
	}
	return eventMsg(ev)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(driver.Event(msg)), m.next)
	case doneMsg:
		m.closed = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 40)
		m.bar.Width = m.width - 4
	case spinner.TickMsg:
		if !m.closed {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) apply(ev driver.Event) tea.Cmd {
	i, ok := m.byPath[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[i]
	if row.finished() {
		return nil
	}
	row.status = ev.Status
	if ev.Status == driver.StatusWorking || ev.Status == driver.StatusQueued {
		row.stage = ev.Stage
	}
	if ev.Status == driver.StatusError {
		m.failed++
	}
	return m.bar.SetPercent(m.fraction())
}

func (m *progressModel) fraction() float64 {
	if len(m.rows) == 0 {
		return 1
	}
	var sum float64
	for _, r := range m.rows {
		if r.finished() {
			sum++
		} else {
			sum += stageInfo[r.stage].weight
		}
	}
	return sum / float64(len(m.rows))
}

func (m *progressModel) finishedCount() int {
	n := 0
	for _, r := range m.rows {
		if r.finished() {
			n++
		}
	}
	return n
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	lead := m.spinner.View()
	if m.closed {
		lead = "done:"
	}
	header := fmt.Sprintf("%s %s  %d/%d", lead, m.title, m.finishedCount(), len(m.rows))
	if m.failed > 0 {
		header += styleFailed.Render(fmt.Sprintf("  %d failed", m.failed))
	}
	b.WriteString(styleTitle.Render(header) + "\n\n")

	nameWidth := max(m.width-statusColumn-4, 20)
	for _, r := range m.rows {
		text, style := r.label()
		fmt.Fprintf(&b, "  %s %s\n", style.Render(fmt.Sprintf("%*s", statusColumn, text)), truncate(r.path, nameWidth))
	}
	b.WriteByte('\n')
	if m.closed {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteByte('\n')
	return b.String()
}

// truncate shortens value to width terminal cells, keeping the tail of a
// path since that is the part that tells files apart.
func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	rs := []rune(value)
	keep := width - 3
	for i := range rs {
		if tail := string(rs[i:]); runewidth.StringWidth(tail) <= keep {
			return "..." + tail
		}
	}
	return "..."
}
