// Package browse is the interactive terminal browser for the local job index.
package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jobwatch/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const listItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// sourceCycle lists connector tags and display names in the order the
// source filter key steps through them.
var sourceCycle = []struct {
	tag   string
	label string
}{
	{"", "All sources"},
	{"nhs", "NHS Jobs"},
	{"dwp", "Find a Job"},
	{"indeed", "Indeed UK"},
}

type browseModel struct {
	all      []model.Listing
	filtered []model.Listing

	sourceIdx int
	cursor    int

	listViewport   viewport.Model
	detailViewport viewport.Model
	view           viewState
	detail         model.Listing

	width  int
	height int
	ready  bool
	now    time.Time
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m browseModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "s", "tab":
		m.sourceIdx = (m.sourceIdx + 1) % len(sourceCycle)
		m.applyFilter()
		return m, nil
	case "enter":
		if len(m.filtered) == 0 {
			return m, nil
		}
		m.view = viewDetail
		m.detail = m.filtered[m.cursor]
		m.detailViewport = viewport.New(m.width-4, m.height-4)
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	}

	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m browseModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.URL)
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.filtered)-1, 0))
	m.listViewport.SetContent(m.renderList())
	m.ensureCursorVisible()
}

func (m *browseModel) ensureCursorVisible() {
	cursorTop := m.cursor * listItemHeight
	cursorBottom := cursorTop + listItemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m *browseModel) applyFilter() {
	tag := sourceCycle[m.sourceIdx].tag
	if tag == "" {
		m.filtered = m.all
	} else {
		m.filtered = nil
		for _, l := range m.all {
			if l.Source == tag {
				m.filtered = append(m.filtered, l)
			}
		}
	}
	m.cursor = 0
	m.listViewport.SetContent(m.renderList())
	m.listViewport.SetYOffset(0)
}

func (m *browseModel) recalcLayout() {
	// Header (1) + border top/bottom (2) + status bar (1).
	w := max(m.width-2, 20)
	h := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(w, h)
		m.ready = true
	} else {
		m.listViewport.Width = w
		m.listViewport.Height = h
	}
	m.listViewport.SetContent(m.renderList())
}

func (m browseModel) View() string {
	if !m.ready {
		return "Loading index..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	header := headerStyle.Render(fmt.Sprintf(" %s (%d)", sourceCycle[m.sourceIdx].label, len(m.filtered)))
	pane := borderStyle.Width(m.listViewport.Width).Render(m.listViewport.View())
	status := statusBarStyle.Width(m.width).Render(
		" ↑/↓ cursor  Enter detail  s source filter  q quit")
	return header + "\n" + pane + "\n" + status
}

func (m browseModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing Details")
	content := borderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	status := statusBarStyle.Width(m.width).Render(
		" o open in browser  esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + status
}

func (m browseModel) renderList() string {
	if len(m.filtered) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, l := range m.filtered {
		titleSt := titleStyle
		subtitleSt := subtitleStyle
		prefix := "  "
		if i == m.cursor {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(l.Title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s",
			l.Source, l.Employer, model.FormatAge(l.DatePosted, m.now))))
		b.WriteByte('\n')

		if i < len(m.filtered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m browseModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", l.Title)
	addField("Employer", l.Employer)
	addField("Location", l.Location)
	addField("Salary", l.Salary)
	addField("Posted", l.DatePosted)
	addField("Closes", l.ClosingDate)
	addField("Contract", l.ContractType)
	addField("Pattern", l.WorkingPattern)
	addField("Reference", l.JobReference)
	addField("Source", l.Source)

	b.WriteByte('\n')
	addField("URL", l.URL)

	if l.Description != "" {
		wrapWidth := max(m.width-8, 20)
		fill := strings.Repeat("─", max(wrapWidth-len("── Description "), 3))
		b.WriteByte('\n')
		b.WriteString(dividerStyle.Render("── Description "+fill) + "\n\n")
		b.WriteString(bodyStyle.Render(wordWrap(l.Description, wrapWidth)) + "\n")
	}

	return b.String()
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the interactive index browser over the given listings.
func Run(listings []model.Listing) error {
	m := browseModel{
		all: listings,
		now: time.Now(),
	}
	m.filtered = listings

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
