package tui

import (
	"fmt"
	"math"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"github.com/hylla/insync/internal/editor"
)

// headerRows is the title line plus one spacer; item rows start below it.
const headerRows = 2

const gutterWidth = 2

// fadePalette runs from normal text to nearly invisible.
var fadePalette = []string{"252", "249", "246", "243", "240", "238", "236"}

var (
	accent      = lipgloss.Color("62")
	muted       = lipgloss.Color("241")
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	activeTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(accent).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(muted)
	gutterStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	blankStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	doneStyle   = lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
)

// itemBlock is the rendered rows of one item.
type itemBlock struct {
	id     string
	text   string
	height int
}

func (m Model) View() tea.View {
	v := tea.NewView(m.viewContent())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

func (m Model) viewContent() string {
	switch {
	case m.err != nil && !m.loaded:
		return "error: " + m.err.Error() + "\n\npress " + m.keys.reload.Help().Key + " to retry • ctrl+c quit\n"
	case !m.loaded:
		return "loading..."
	default:
		return m.render()
	}
}

func (m Model) render() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	for _, block := range m.blocks() {
		b.WriteString(block.text)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) header() string {
	outline := m.ed.Outline()
	name := outline.Name
	if name == "" {
		name = outline.ListID
	}
	title := "insync · " + name
	if m.ed.Focus().Container {
		title = activeTitle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	if n := m.ed.PendingCount(); n > 0 {
		title += statusStyle.Render(fmt.Sprintf("  %d pending", n))
	}
	return title
}

// blocks lays out every item. View and mouse hit-testing share it.
func (m Model) blocks() []itemBlock {
	width := m.textWidth()
	items := m.ed.Outline().Items()
	out := make([]itemBlock, 0, len(items))
	for _, item := range items {
		body := m.itemBody(item, width)
		lines := strings.Split(body, "\n")
		level := m.fadeLevel(item.ID)
		shift := 0
		if m.swipeView.ItemID == item.ID {
			shift = int(math.Round(-m.swipeView.Offset))
		}
		for i, line := range lines {
			if shift > 0 {
				line = ansi.Cut(line, shift, shift+width)
			}
			if level > 0 {
				line = lipgloss.NewStyle().Foreground(lipgloss.Color(fadeColor(level))).Render(ansi.Strip(line))
			}
			gutter := strings.Repeat(" ", gutterWidth)
			switch {
			case i == 0 && item.ID == m.editingID:
				gutter = gutterStyle.Render("›") + " "
			case i == 0 && item.Completed:
				gutter = statusStyle.Render("✓") + " "
			}
			lines[i] = gutter + line
		}
		out = append(out, itemBlock{id: item.ID, text: strings.Join(lines, "\n"), height: len(lines)})
	}
	return out
}

// itemBody renders the text of one item without gutter or swipe effects.
func (m Model) itemBody(item editor.Item, width int) string {
	if item.ID == m.editingID {
		return strings.TrimRight(m.input.View(), "\n")
	}
	if item.Blank() {
		return blankStyle.Render("·")
	}
	if m.markdown && m.md != nil {
		if rendered := m.md.render(item.Text, width); rendered != "" {
			return rendered
		}
	}
	if item.Completed {
		return doneStyle.Width(width).Render(item.Text)
	}
	return lipgloss.NewStyle().Width(width).Render(item.Text)
}

// fadeLevel is 0 for normal rows and approaches 1 as a delete fades out.
func (m Model) fadeLevel(itemID string) float64 {
	if frame, ok := m.fading[itemID]; ok && m.fadeFrames > 0 {
		return 0.5 + 0.5*float64(frame+1)/float64(m.fadeFrames)
	}
	if m.ed.PendingDelete(itemID) {
		return 0.5
	}
	if m.swipeView.ItemID == itemID {
		return 0.5 * m.swipeView.Progress
	}
	return 0
}

func fadeColor(level float64) string {
	level = math.Max(0, math.Min(1, level))
	return fadePalette[int(math.Round(level*float64(len(fadePalette)-1)))]
}

// itemAt returns the item drawn on screen row y.
func (m Model) itemAt(y int) string {
	row := y - headerRows
	if row < 0 {
		return ""
	}
	for _, block := range m.blocks() {
		if row < block.height {
			return block.id
		}
		row -= block.height
	}
	return ""
}

func (m Model) textWidth() int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width-gutterWidth-1, 10)
}
