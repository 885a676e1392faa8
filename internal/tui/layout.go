package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/adventure/internal/session"
	"github.com/csheth/adventure/internal/story"
)

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
)

type pageLayout struct {
	windowWidth      int
	windowHeight     int
	viewportWidth    int
	viewportHeight   int
	transcriptHeight int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:    80,
		viewportHeight:   20,
		transcriptHeight: 6,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	// hero, page header, status lines, meter and log heading with their gaps
	const chrome = 12
	usable := height - chrome
	if usable < 12 {
		usable = 12
	}
	l.transcriptHeight = usable / 4
	if l.transcriptHeight < 3 {
		l.transcriptHeight = 3
	}
	l.viewportHeight = usable - l.transcriptHeight
}

type contentBuilder struct {
	builder strings.Builder
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (m *model) buildPageContent() string {
	page, ok := m.story.CurrentPage()
	if !ok {
		return helperStyle.Render("The story has not started yet.")
	}
	width := m.wrapWidth(2)
	cb := &contentBuilder{}

	text := page.Text()
	switch text.Status {
	case session.StatusIdle:
		cb.WriteString(helperStyle.Render("Nothing to write for this page."))
		return cb.String()
	case session.StatusPending:
		cb.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), helperStyle.Render("Writing the page…")))
		return cb.String()
	case session.StatusFailed:
		cb.WriteString(errorStyle.Render(wordwrap.String("⚠ "+text.Err, width)))
		cb.WriteString("\n\n")
		cb.WriteString(helperStyle.Render("Press r to try this page again."))
		return cb.String()
	}

	m.writeIllustration(cb, page.Image(), width)

	structure, _ := page.Structure()
	for i, paragraph := range structure.Paragraphs() {
		if i > 0 {
			cb.WriteString("\n\n")
		}
		cb.WriteString(storyStyle.Render(wordwrap.String(paragraph, width)))
	}

	if !structure.HasChoices() {
		cb.WriteString("\n\n")
		cb.WriteString(helperStyle.Render("The story ends here. Press r to rewrite this page."))
		return cb.String()
	}

	cb.WriteString("\n\n")
	cb.WriteString(sectionHeaderStyle.Render(story.Divider))
	selected, hasSelected := page.Selected()
	for i, choice := range structure.Choices {
		cb.WriteRune('\n')
		marker := "  "
		if i == m.optionCursor {
			marker = "› "
		}
		line := wordwrap.String(fmt.Sprintf("%s#%d %s", marker, i, choice), width)
		line = indentMultiline(line, "     ")
		switch {
		case hasSelected && i == selected:
			cb.WriteString(chosenOptionStyle.Render(line + "  ✓"))
		case i == m.optionCursor:
			cb.WriteString(cursorOptionStyle.Render(line))
		default:
			cb.WriteString(optionStyle.Render(line))
		}
	}
	return cb.String()
}

func (m *model) writeIllustration(cb *contentBuilder, image session.Request, width int) {
	switch image.Status {
	case session.StatusPending:
		cb.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), helperStyle.Render("Painting an illustration…")))
	case session.StatusFailed:
		cb.WriteString(errorStyle.Render(wordwrap.String("Illustration unavailable: "+image.Err, width)))
	case session.StatusSucceeded:
		cb.WriteString(sectionHeaderStyle.Render("Illustration"))
		cb.WriteRune('\n')
		cb.WriteString(subjectStyle.Render(previewText(image.Result, width)))
		if path, ok := m.savedIllustrations[image.Result]; ok {
			cb.WriteRune('\n')
			cb.WriteString(helperStyle.Render("Saved: " + path))
		} else if m.config.Cache != nil {
			cb.WriteRune('\n')
			cb.WriteString(helperStyle.Render("Press o to save it locally."))
		}
	default:
		return
	}
	cb.WriteString("\n\n")
}

func (m *model) buildTranscript() string {
	if len(m.sessionLog) == 0 {
		return helperStyle.Render("Requests and choices will appear here.")
	}
	lines := make([]string, 0, len(m.sessionLog))
	for _, entry := range m.sessionLog {
		stamp := entry.At.Format("15:04:05")
		text := previewText(entry.Text, m.wrapWidth(12))
		if entry.Failure {
			lines = append(lines, helperStyle.Render(stamp)+" "+errorStyle.Render(text))
			continue
		}
		lines = append(lines, helperStyle.Render(stamp)+" "+text)
	}
	return strings.Join(lines, "\n")
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth(padding int) int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func previewText(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 1 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
