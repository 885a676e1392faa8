package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/adventure/internal/generate"
	"github.com/csheth/adventure/internal/illustration"
	"github.com/csheth/adventure/internal/session"
	"github.com/csheth/adventure/internal/story"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Client generate.Client
	// Seed opens the story. Empty means story.InitialPrompt.
	Seed   string
	Cache  *illustration.Cache
	Logger *zap.Logger
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	return newModel(config)
}

func newModel(config Config) *model {
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	seed := config.Seed
	if strings.TrimSpace(seed) == "" {
		seed = story.InitialPrompt
	}

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true
	transcript := viewport.New(80, 6)

	m := &model{
		config:             config,
		log:                log,
		jobs:               newJobBus(log),
		spinner:            spin,
		viewport:           vp,
		transcriptViewport: transcript,
		layout:             newPageLayout(),
		activeJobs:         map[string]jobSnapshot{},
		savedIllustrations: map[string]string{},
		viewportDirty:      true,
		transcriptDirty:    true,
		infoMessage:        "Opening the story…",
	}
	m.story = session.New(seed, session.WithListener(m.recordEvent))
	m.log = log.With(zap.String("story", m.story.ID()))
	return m
}

type model struct {
	config Config
	log    *zap.Logger
	story  *session.Story
	jobs   *jobBus

	spinner            spinner.Model
	spinning           bool
	viewport           viewport.Model
	transcriptViewport viewport.Model
	layout             pageLayout
	viewportDirty      bool
	transcriptDirty    bool

	optionCursor int
	helpVisible  bool
	infoMessage  string
	errorMessage string

	activeJobs         map[string]jobSnapshot
	sessionLog         []logEntry
	savedIllustrations map[string]string
	savingIllustration bool
}

func (m *model) Init() tea.Cmd {
	tickets := m.story.Start()
	if len(tickets) == 0 {
		m.infoMessage = "The opening prompt is empty; nothing to generate."
	}
	return m.dispatch(tickets)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.markViewportDirty()
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.viewport.Width = m.layout.viewportWidth
		m.viewport.Height = m.layout.viewportHeight
		m.transcriptViewport.Width = m.layout.viewportWidth
		m.transcriptViewport.Height = m.layout.transcriptHeight
		m.markViewportDirty()
		m.transcriptDirty = true
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case jobSignalMsg:
		m.activeJobs[msg.Snapshot.ID] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		delete(m.activeJobs, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case generationResultMsg:
		tickets := m.story.Resolve(msg.outcome)
		m.syncCursor()
		m.markViewportDirty()
		return m, m.dispatch(tickets)
	case illustrationSavedMsg:
		m.savingIllustration = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("Could not save illustration: %v", msg.err)
			m.log.Warn("illustration save failed", zap.String("url", msg.url), zap.Error(msg.err))
			return m, nil
		}
		m.savedIllustrations[msg.url] = msg.path
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Illustration saved to %s", msg.path)
		m.log.Info("illustration saved", zap.String("path", msg.path))
		m.markViewportDirty()
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "left", "h":
		if m.story.Previous() {
			m.afterNavigate()
		}
		return m, nil
	case "right", "l":
		if m.story.Next() {
			m.afterNavigate()
		}
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "enter":
		return m, m.selectChoice(m.optionCursor)
	case "r":
		return m, m.regenerate()
	case "o":
		return m, m.saveIllustration()
	case "pgup", "pgdown", "home", "end", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
	if runes := key.Runes; key.Type == tea.KeyRunes && len(runes) == 1 && runes[0] >= '0' && runes[0] <= '9' {
		return m, m.selectChoice(int(runes[0] - '0'))
	}
	return m, nil
}

func (m *model) selectChoice(choice int) tea.Cmd {
	page, ok := m.story.CurrentPage()
	if !ok {
		return nil
	}
	if !page.CanSelect(choice) {
		if structure, ready := page.Structure(); ready && structure.HasChoices() {
			m.infoMessage = fmt.Sprintf("Choose between 0 and %d.", len(structure.Choices)-1)
		} else {
			m.infoMessage = "There is nothing to choose on this page yet."
		}
		return nil
	}
	tickets, err := m.story.SelectChoice(page.Position(), choice)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Turning to page %d…", m.story.Current()+1)
	m.afterNavigate()
	return m.dispatch(tickets)
}

func (m *model) regenerate() tea.Cmd {
	page, ok := m.story.CurrentPage()
	if !ok {
		return nil
	}
	if !page.CanRegenerate() {
		m.infoMessage = "Wait for this page to finish before regenerating it."
		return nil
	}
	tickets, err := m.story.Regenerate(page.Position())
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Rewriting page %d…", page.Position()+1)
	m.afterNavigate()
	return m.dispatch(tickets)
}

func (m *model) saveIllustration() tea.Cmd {
	page, ok := m.story.CurrentPage()
	if !ok {
		return nil
	}
	image := page.Image()
	if image.Status != session.StatusSucceeded {
		m.infoMessage = "No illustration to save on this page."
		return nil
	}
	if m.config.Cache == nil {
		m.errorMessage = errNoCache.Error()
		return nil
	}
	if m.savingIllustration {
		return nil
	}
	m.savingIllustration = true
	m.infoMessage = "Saving illustration…"
	return tea.Batch(m.jobs.Start(jobKindSave, saveIllustrationJob(m.config.Cache, image.Result)), m.startSpinner())
}

// dispatch runs each ticket on the job bus.
func (m *model) dispatch(tickets []session.Ticket) tea.Cmd {
	if len(tickets) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(tickets)+1)
	for _, ticket := range tickets {
		m.log.Debug("dispatching",
			zap.Int("position", ticket.Position),
			zap.String("kind", string(ticket.Kind)),
			zap.Uint64("tag", ticket.Tag),
		)
		cmds = append(cmds, m.jobs.Start(jobKindFor(ticket.Kind), generationJob(m.config.Client, ticket)))
	}
	cmds = append(cmds, m.startSpinner())
	return tea.Batch(cmds...)
}

func (m *model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *model) busy() bool {
	return m.savingIllustration || m.story.Pending() > 0
}

func (m *model) recordEvent(event session.Event) {
	entry := describeEvent(event)
	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.Int("position", event.Position),
		zap.String("kind", string(event.Kind)),
		zap.Uint64("tag", event.Tag),
	}
	if event.Detail != "" {
		fields = append(fields, zap.String("detail", event.Detail))
	}
	if entry.Failure {
		m.log.Warn("story transition", fields...)
	} else {
		m.log.Info("story transition", fields...)
	}
	m.sessionLog = append(m.sessionLog, entry)
	if len(m.sessionLog) > maxLogEntries {
		m.sessionLog = m.sessionLog[len(m.sessionLog)-maxLogEntries:]
	}
	m.transcriptDirty = true
}

func (m *model) afterNavigate() {
	m.optionCursor = 0
	m.syncCursor()
	m.viewport.GotoTop()
	m.markViewportDirty()
}

// syncCursor keeps the option cursor on the selected choice, or inside the option list.
func (m *model) syncCursor() {
	page, ok := m.story.CurrentPage()
	if !ok {
		m.optionCursor = 0
		return
	}
	if selected, ok := page.Selected(); ok {
		m.optionCursor = selected
		return
	}
	structure, ok := page.Structure()
	if !ok || !structure.HasChoices() {
		m.optionCursor = 0
		return
	}
	if m.optionCursor >= len(structure.Choices) {
		m.optionCursor = len(structure.Choices) - 1
	}
}

func (m *model) moveCursor(delta int) {
	page, ok := m.story.CurrentPage()
	if !ok {
		return
	}
	structure, ok := page.Structure()
	if !ok || !structure.HasChoices() {
		return
	}
	next := m.optionCursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(structure.Choices) {
		next = len(structure.Choices) - 1
	}
	m.optionCursor = next
	m.markViewportDirty()
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewportDirty = false
	m.viewport.SetContent(m.buildPageContent())
}

func (m *model) refreshTranscriptIfDirty() {
	if !m.transcriptDirty {
		return
	}
	m.transcriptDirty = false
	m.transcriptViewport.SetContent(m.buildTranscript())
	m.transcriptViewport.GotoBottom()
}
