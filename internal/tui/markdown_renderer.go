package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
)

// markdownRenderer renders item text as terminal markdown, caching output per wrap width.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{cache: map[string]string{}}
}

// render returns styled text, or the plain text when glamour fails.
func (r *markdownRenderer) render(text string, width int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	width = max(width, 16)

	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return text
		}
		r.renderer = renderer
		r.width = width
		r.cache = map[string]string{}
	}
	if out, ok := r.cache[text]; ok {
		return out
	}

	rendered, err := r.renderer.Render(text)
	if err != nil {
		return text
	}
	// glamour pads documents with blank margins; item rows stay tight.
	out := strings.Trim(rendered, "\n")
	out = trimBlankLines(out)
	r.cache[text] = out
	return out
}

func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(ansi.Strip(line)) == "" {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "\n")
}
