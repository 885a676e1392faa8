package session

import (
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/adventure/internal/story"
)

const openingPage = "Once upon a time...\nDo you:\n#0: go left\n#1: go right"

func pageText(n int) string {
	return fmt.Sprintf("Page %d narration.\nDo you:\n#0: left %d\n#1: right %d\n#2: wait %d", n, n, n, n)
}

func newStory(t *testing.T) (*Story, *[]Event) {
	t.Helper()
	var events []Event
	s := New("seed prompt", WithID("test-session"), WithListener(func(e Event) {
		events = append(events, e)
	}))
	return s, &events
}

func onlyTicket(t *testing.T, tickets []Ticket, kind Kind) Ticket {
	t.Helper()
	require.Len(t, tickets, 1)
	require.Equal(t, kind, tickets[0].Kind)
	return tickets[0]
}

// advance resolves the pending text at position with text and returns the image ticket.
func advance(t *testing.T, s *Story, ticket Ticket, text string) Ticket {
	t.Helper()
	return onlyTicket(t, s.Resolve(Outcome{Ticket: ticket, Value: text}), KindImage)
}

func TestStartIssuesSeedRequest(t *testing.T) {
	s, _ := newStory(t)
	assert.Equal(t, "test-session", s.ID())

	ticket := onlyTicket(t, s.Start(), KindText)
	assert.Equal(t, 0, ticket.Position)
	assert.Equal(t, []story.Message{{Role: openai.ChatMessageRoleUser, Content: "seed prompt"}}, ticket.Messages)

	page, ok := s.Page(0)
	require.True(t, ok)
	assert.Equal(t, StatusPending, page.Text().Status)
	assert.Equal(t, StatusIdle, page.Image().Status)
	assert.False(t, page.CanRegenerate())
	assert.Equal(t, 1, s.Pending())
}

func TestEmptySeedStaysIdle(t *testing.T) {
	s := New("   ")
	assert.Empty(t, s.Start())
	page, ok := s.Page(0)
	require.True(t, ok)
	assert.Equal(t, StatusIdle, page.Text().Status)
	assert.Equal(t, 0, s.Pending())
}

func TestEndToEndScenario(t *testing.T) {
	s, _ := newStory(t)
	textTicket := onlyTicket(t, s.Start(), KindText)

	imageTicket := advance(t, s, textTicket, openingPage)
	assert.Equal(t, 0, imageTicket.Position)
	assert.Contains(t, imageTicket.Prompt, "Once upon a time...")
	assert.Contains(t, imageTicket.Prompt, "Do NOT include words or lettering")

	page, _ := s.Page(0)
	structure, ok := page.Structure()
	require.True(t, ok)
	assert.Equal(t, []string{"go left", "go right"}, structure.Choices)

	assert.Empty(t, s.Resolve(Outcome{Ticket: imageTicket, Value: "https://img.example/0.png"}))
	assert.Equal(t, "https://img.example/0.png", page.Image().Result)

	tickets, err := s.SelectChoice(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []story.CompletedPage{{Content: openingPage, Choice: 0}}, s.Sequence())
	assert.Equal(t, 1, s.Current())

	next := onlyTicket(t, tickets, KindText)
	assert.Equal(t, 1, next.Position)
	assert.Equal(t, []story.Message{
		{Role: openai.ChatMessageRoleUser, Content: "seed prompt"},
		{Role: openai.ChatMessageRoleAssistant, Content: openingPage},
		{Role: openai.ChatMessageRoleUser, Content: "0"},
	}, next.Messages)

	selected, ok := page.Selected()
	require.True(t, ok)
	assert.Equal(t, 0, selected)
}

func TestTextErrorNeverIssuesImage(t *testing.T) {
	s, events := newStory(t)
	ticket := onlyTicket(t, s.Start(), KindText)

	next := s.Resolve(Outcome{Ticket: ticket, Err: errors.New("overloaded")})
	assert.Empty(t, next)

	page, _ := s.Page(0)
	assert.Equal(t, StatusFailed, page.Text().Status)
	assert.Equal(t, "overloaded", page.Text().Err)
	assert.Equal(t, StatusIdle, page.Image().Status)
	_, ok := page.Structure()
	assert.False(t, ok)
	assert.True(t, page.CanRegenerate())

	last := (*events)[len(*events)-1]
	assert.Equal(t, EventFailed, last.Type)
	assert.Equal(t, "overloaded", last.Detail)
}

func TestImageErrorIsLocalToPage(t *testing.T) {
	s, _ := newStory(t)
	imageTicket := advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)
	s.Resolve(Outcome{Ticket: imageTicket, Err: errors.New("image backend down")})

	page, _ := s.Page(0)
	assert.Equal(t, StatusSucceeded, page.Text().Status)
	assert.Equal(t, StatusFailed, page.Image().Status)

	_, err := s.SelectChoice(0, 1)
	require.NoError(t, err)
}

func TestSelectChoiceTruncatesLaterPages(t *testing.T) {
	s, events := newStory(t)
	ticket := onlyTicket(t, s.Start(), KindText)
	for i := 0; i < 3; i++ {
		advance(t, s, ticket, pageText(i))
		tickets, err := s.SelectChoice(i, 1)
		require.NoError(t, err)
		ticket = onlyTicket(t, tickets, KindText)
	}
	require.Len(t, s.Sequence(), 3)
	require.Equal(t, 4, s.Len())

	*events = nil
	tickets, err := s.SelectChoice(1, 2)
	require.NoError(t, err)

	seq := s.Sequence()
	require.Len(t, seq, 2)
	assert.Equal(t, 2, seq[1].Choice)
	assert.Equal(t, pageText(1), seq[1].Content)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Current())

	next := onlyTicket(t, tickets, KindText)
	assert.Equal(t, 2, next.Position)
	assert.Equal(t, "2", next.Messages[len(next.Messages)-1].Content)

	var truncated []int
	for _, e := range *events {
		if e.Type == EventTruncated {
			truncated = append(truncated, e.Position)
		}
	}
	assert.Equal(t, []int{3}, truncated)
}

func TestSelectChoiceContractViolations(t *testing.T) {
	s, _ := newStory(t)
	ticket := onlyTicket(t, s.Start(), KindText)

	_, err := s.SelectChoice(0, 0)
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = s.SelectChoice(4, 0)
	assert.ErrorIs(t, err, ErrUnknownPage)

	advance(t, s, ticket, openingPage)
	_, err = s.SelectChoice(0, 2)
	assert.ErrorIs(t, err, ErrChoiceOutOfRange)
	_, err = s.SelectChoice(0, -1)
	assert.ErrorIs(t, err, ErrChoiceOutOfRange)

	page, _ := s.Page(0)
	assert.True(t, page.CanSelect(1))
	assert.False(t, page.CanSelect(2))
	assert.Empty(t, s.Sequence())
}

func TestSelectChoiceOnEndingPage(t *testing.T) {
	s, _ := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), "You sail into the sunset. THE END.")
	_, err := s.SelectChoice(0, 0)
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestRegenerateTruncatesAndResetsChoice(t *testing.T) {
	s, events := newStory(t)
	ticket := onlyTicket(t, s.Start(), KindText)
	for i := 0; i < 3; i++ {
		advance(t, s, ticket, pageText(i))
		tickets, err := s.SelectChoice(i, 0)
		require.NoError(t, err)
		ticket = onlyTicket(t, tickets, KindText)
	}
	require.Len(t, s.Sequence(), 3)

	*events = nil
	tickets, err := s.Regenerate(1)
	require.NoError(t, err)

	regen := onlyTicket(t, tickets, KindText)
	assert.Equal(t, 1, regen.Position)
	assert.Len(t, s.Sequence(), 2)
	assert.Equal(t, 3, s.Len())

	page, _ := s.Page(1)
	_, selected := page.Selected()
	assert.False(t, selected)
	assert.Equal(t, StatusPending, page.Text().Status)
	assert.Equal(t, StatusIdle, page.Image().Status)
	_, ok := page.Structure()
	assert.False(t, ok)

	earlier, _ := s.Page(0)
	assert.Equal(t, StatusSucceeded, earlier.Text().Status)
	assert.Equal(t, StatusPending, earlier.Image().Status)
	require.NotEmpty(t, *events)
	assert.Equal(t, EventRegenerated, (*events)[0].Type)
}

func TestRegenerateUnknownPage(t *testing.T) {
	s, _ := newStory(t)
	s.Start()
	_, err := s.Regenerate(3)
	assert.ErrorIs(t, err, ErrUnknownPage)
}

func TestRegenerateReissuesImage(t *testing.T) {
	s, _ := newStory(t)
	first := onlyTicket(t, s.Start(), KindText)
	oldImage := advance(t, s, first, openingPage)

	tickets, err := s.Regenerate(0)
	require.NoError(t, err)
	regen := onlyTicket(t, tickets, KindText)
	newImage := advance(t, s, regen, "A different opening.\nDo you:\n#0: swim")
	assert.NotEqual(t, oldImage.Tag, newImage.Tag)
	assert.Contains(t, newImage.Prompt, "A different opening.")

	assert.Empty(t, s.Resolve(Outcome{Ticket: oldImage, Value: "stale.png"}))
	s.Resolve(Outcome{Ticket: newImage, Value: "fresh.png"})
	page, _ := s.Page(0)
	assert.Equal(t, "fresh.png", page.Image().Result)
}

func TestSupersededResultArrivingLateIsDiscarded(t *testing.T) {
	s, events := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)

	tickets, err := s.SelectChoice(0, 0)
	require.NoError(t, err)
	stale := onlyTicket(t, tickets, KindText)

	s.Previous()
	tickets, err = s.SelectChoice(0, 1)
	require.NoError(t, err)
	fresh := onlyTicket(t, tickets, KindText)
	require.Equal(t, stale.Position, fresh.Position)
	require.Greater(t, fresh.Tag, stale.Tag)

	s.Resolve(Outcome{Ticket: fresh, Value: "fresh page"})
	*events = nil
	assert.Empty(t, s.Resolve(Outcome{Ticket: stale, Value: "stale page"}))

	page, _ := s.Page(1)
	assert.Equal(t, "fresh page", page.Text().Result)
	require.Len(t, *events, 1)
	assert.Equal(t, EventDiscarded, (*events)[0].Type)
}

func TestSupersededResultArrivingFirstIsDiscarded(t *testing.T) {
	s, _ := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)

	tickets, _ := s.SelectChoice(0, 0)
	stale := onlyTicket(t, tickets, KindText)
	tickets, _ = s.SelectChoice(0, 1)
	fresh := onlyTicket(t, tickets, KindText)

	assert.Empty(t, s.Resolve(Outcome{Ticket: stale, Err: errors.New("late failure")}))
	page, _ := s.Page(1)
	assert.Equal(t, StatusPending, page.Text().Status)

	s.Resolve(Outcome{Ticket: fresh, Value: "fresh page"})
	assert.Equal(t, StatusSucceeded, page.Text().Status)
	assert.Equal(t, "fresh page", page.Text().Result)
}

func TestOutcomeForTruncatedPageIsDiscarded(t *testing.T) {
	s, _ := newStory(t)
	ticket := onlyTicket(t, s.Start(), KindText)
	advance(t, s, ticket, pageText(0))
	tickets, _ := s.SelectChoice(0, 0)
	advance(t, s, onlyTicket(t, tickets, KindText), pageText(1))
	tickets, _ = s.SelectChoice(1, 0)
	orphan := onlyTicket(t, tickets, KindText)
	require.Equal(t, 2, orphan.Position)

	// Re-branch at page 0, then walk forward so position 2 exists again with a new request.
	tickets, _ = s.SelectChoice(0, 1)
	advance(t, s, onlyTicket(t, tickets, KindText), pageText(1))
	tickets, _ = s.SelectChoice(1, 1)
	replacement := onlyTicket(t, tickets, KindText)
	require.Equal(t, 2, replacement.Position)
	require.NotEqual(t, orphan.Tag, replacement.Tag)

	assert.Empty(t, s.Resolve(Outcome{Ticket: orphan, Value: "orphaned"}))
	page, _ := s.Page(2)
	assert.Equal(t, StatusPending, page.Text().Status)

	assert.Empty(t, s.Resolve(Outcome{Ticket: Ticket{Position: 9, Kind: KindText, Tag: 1}}))
}

func TestReselectingSameChoiceKeepsNextPage(t *testing.T) {
	s, _ := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)
	tickets, _ := s.SelectChoice(0, 1)
	advance(t, s, onlyTicket(t, tickets, KindText), pageText(1))

	tickets, err := s.SelectChoice(0, 1)
	require.NoError(t, err)
	assert.Empty(t, tickets)
	page, _ := s.Page(1)
	assert.Equal(t, pageText(1), page.Text().Result)
}

func TestNavigation(t *testing.T) {
	s, _ := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)
	assert.False(t, s.CanPrevious())
	assert.False(t, s.CanNext())
	assert.False(t, s.Next())

	_, err := s.SelectChoice(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Current())
	assert.False(t, s.Next())

	assert.True(t, s.Previous())
	assert.Equal(t, 0, s.Current())
	assert.True(t, s.CanNext())
	assert.True(t, s.Next())

	current, ok := s.CurrentPage()
	require.True(t, ok)
	assert.Equal(t, 1, current.Position())
}

func TestContextsMatchPages(t *testing.T) {
	s, _ := newStory(t)
	advance(t, s, onlyTicket(t, s.Start(), KindText), openingPage)
	_, err := s.SelectChoice(0, 1)
	require.NoError(t, err)

	contexts := s.Contexts()
	require.Len(t, contexts, s.Len())
	for i, context := range contexts {
		page, _ := s.Page(i)
		assert.Equal(t, context, page.Context())
	}
}
