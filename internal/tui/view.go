package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	heroTitle   = "✦ Adventure"
	heroTagline = "Every page is written as you read it."
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	m.refreshTranscriptIfDirty()

	parts := []string{m.heroView(), m.pageHeaderView(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.savingIllustration {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.keyLegendView(), m.helpView())
	}
	parts = append(parts, m.footerView())
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		heroTitleStyle.Render(heroTitle),
		"  ",
		taglineStyle.Render(heroTagline),
	)
}

func (m *model) pageHeaderView() string {
	total := m.story.Len()
	if total == 0 {
		return ""
	}
	prev := helperStyle.Render("◀ h")
	if m.story.CanPrevious() {
		prev = keyDescStyle.Render("◀ h")
	}
	next := helperStyle.Render("l ▶")
	if m.story.CanNext() {
		next = keyDescStyle.Render("l ▶")
	}
	title := titleStyle.Render(fmt.Sprintf("Page %d of %d", m.story.Current()+1, total))
	return strings.Join([]string{prev, title, next}, "  ")
}

func (m *model) footerView() string {
	logBody := strings.TrimSpace(m.transcriptViewport.View())
	return joinNonEmpty([]string{
		m.sessionMeterView(),
		sectionHeaderStyle.Render("Session Log"),
		logBody,
	})
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) sessionMeterView() string {
	stats := []string{}
	if page, ok := m.story.CurrentPage(); ok {
		stats = append(stats,
			fmt.Sprintf("Text %s", statusLabel(page.Text().Status)),
			fmt.Sprintf("Image %s", statusLabel(page.Image().Status)),
		)
	}
	stats = append(stats,
		fmt.Sprintf("Pending %d", m.story.Pending()),
		fmt.Sprintf("Jobs %d", len(m.activeJobs)),
	)
	if m.config.Client != nil {
		stats = append(stats, "Backend "+m.config.Client.Name())
	} else {
		stats = append(stats, "Backend offline")
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"←/h", "Previous page"},
		{"→/l", "Next page"},
		{"↑/↓", "Move option cursor"},
		{"enter", "Choose option"},
		{"0-9", "Choose by number"},
		{"r", "Regenerate page"},
		{"o", "Save illustration"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	}
	rows := []string{sectionHeaderStyle.Render("Navigation Cheatsheet")}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description + "  ")
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How it works"),
		helperStyle.Render("• each page is written from the choices made on the pages before it."),
		helperStyle.Render("• choosing an option on an earlier page discards every page after it."),
		helperStyle.Render("• r rewrites the current page once its request has finished; later pages follow the new text."),
		helperStyle.Render("• illustrations load independently; a failed picture never blocks the story."),
		helperStyle.Render("• o stores the illustration in the local cache, Esc closes this panel, q quits."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	subjectStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	storyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))

	optionStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#c9c7d8"))
	cursorOptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	chosenOptionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a3be8c"))

	heroAccentColor        = lipgloss.Color("#ff8c00")
	heroSecondaryTextColor = lipgloss.Color("#ffb347")

	heroTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	taglineStyle   = lipgloss.NewStyle().Foreground(heroSecondaryTextColor).Italic(true)
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	helpBoxStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
)
