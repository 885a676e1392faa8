// Package session owns the page sequence of one reading session and the request lifecycle of
// every page position.
//
// The Story never performs I/O. Operations return Tickets describing backend calls; callers run
// them asynchronously and feed each Outcome back through Resolve. Every ticket carries a tag
// drawn from a single counter, and an outcome is applied only when its tag is still the latest
// one issued for its (position, kind), so a late response can never overwrite fresher state.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/csheth/adventure/internal/story"
)

var (
	ErrUnknownPage      = errors.New("session: unknown page")
	ErrNotReady         = errors.New("session: page text is not ready")
	ErrNoChoices        = errors.New("session: page has no choices")
	ErrChoiceOutOfRange = errors.New("session: choice out of range")
)

// Option customises a Story.
type Option func(*Story)

// WithListener registers a callback for every state transition.
func WithListener(listener func(Event)) Option {
	return func(s *Story) {
		s.listener = listener
	}
}

// WithID overrides the generated session identifier.
func WithID(id string) Option {
	return func(s *Story) {
		if strings.TrimSpace(id) != "" {
			s.id = id
		}
	}
}

// Story is the single authority over the page sequence.
type Story struct {
	id       string
	seed     string
	sequence []story.CompletedPage
	pages    []*Page
	current  int
	lastTag  uint64
	listener func(Event)
}

// New returns an unstarted story seeded with the given prompt.
func New(seed string, opts ...Option) *Story {
	s := &Story{
		id:   uuid.NewString(),
		seed: seed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies the session in logs.
func (s *Story) ID() string { return s.id }

// Start derives the initial contexts and returns the first tickets.
func (s *Story) Start() []Ticket {
	return s.sync()
}

// Sequence returns a copy of the completed pages.
func (s *Story) Sequence() []story.CompletedPage {
	return story.Truncate(s.sequence, len(s.sequence))
}

// Contexts returns the derived context for every page position.
func (s *Story) Contexts() [][]story.Message {
	return story.BuildContexts(s.seed, s.sequence)
}

// Len is the number of page positions, including the one being written.
func (s *Story) Len() int { return len(s.pages) }

// Page returns the page at position.
func (s *Story) Page(position int) (*Page, bool) {
	if position < 0 || position >= len(s.pages) {
		return nil, false
	}
	return s.pages[position], true
}

// Current is the position the reader is looking at.
func (s *Story) Current() int { return s.current }

// CurrentPage returns the page the reader is looking at.
func (s *Story) CurrentPage() (*Page, bool) {
	return s.Page(s.current)
}

// CanPrevious reports whether there is an earlier page.
func (s *Story) CanPrevious() bool { return s.current > 0 }

// CanNext reports whether the reader has already continued past the current page.
func (s *Story) CanNext() bool { return s.current < len(s.sequence) }

// Previous moves the reader back one page.
func (s *Story) Previous() bool {
	if !s.CanPrevious() {
		return false
	}
	s.current--
	return true
}

// Next moves the reader forward one page.
func (s *Story) Next() bool {
	if !s.CanNext() {
		return false
	}
	s.current++
	return true
}

// Pending counts requests still waiting on the backend.
func (s *Story) Pending() int {
	count := 0
	for _, page := range s.pages {
		if page.text.Pending() {
			count++
		}
		if page.image.Pending() {
			count++
		}
	}
	return count
}

// SelectChoice records the reader's branch at position, dropping every later page, and returns
// the ticket for the page that follows.
func (s *Story) SelectChoice(position, choice int) ([]Ticket, error) {
	page, ok := s.Page(position)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPage, position)
	}
	if page.text.Status != StatusSucceeded || page.structure == nil {
		return nil, fmt.Errorf("%w: page %d is %s", ErrNotReady, position, page.text.Status)
	}
	if page.structure.Choices == nil {
		return nil, fmt.Errorf("%w: page %d", ErrNoChoices, position)
	}
	if choice < 0 || choice >= len(page.structure.Choices) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrChoiceOutOfRange, choice, len(page.structure.Choices))
	}

	page.selected = choice
	s.sequence = append(story.Truncate(s.sequence, position), story.CompletedPage{
		Content: page.text.Result,
		Choice:  choice,
	})
	s.current = position + 1
	s.emit(Event{Type: EventChoiceSelected, Position: position, Detail: page.structure.Choices[choice]})
	return s.sync(), nil
}

// Regenerate discards the text at position, re-issues it against the same context, clears the
// selected branch there and drops every completed page after position. Earlier pages are left
// untouched.
func (s *Story) Regenerate(position int) ([]Ticket, error) {
	page, ok := s.Page(position)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPage, position)
	}
	page.selected = -1
	s.emit(Event{Type: EventRegenerated, Position: position, Kind: KindText})

	var tickets []Ticket
	if ticket, ok := s.issueText(page); ok {
		tickets = append(tickets, ticket)
	}
	s.sequence = story.Truncate(s.sequence, position+1)
	tickets = append(tickets, s.sync()...)
	return tickets, nil
}

// Resolve applies a backend outcome. Outcomes for superseded or truncated requests are dropped.
func (s *Story) Resolve(outcome Outcome) []Ticket {
	ticket := outcome.Ticket
	page, ok := s.Page(ticket.Position)
	if !ok {
		s.emit(Event{Type: EventDiscarded, Position: ticket.Position, Kind: ticket.Kind, Tag: ticket.Tag, Detail: "page no longer exists"})
		return nil
	}
	req := page.request(ticket.Kind)
	if req.Tag != ticket.Tag || req.Status != StatusPending {
		s.emit(Event{Type: EventDiscarded, Position: ticket.Position, Kind: ticket.Kind, Tag: ticket.Tag, Detail: "superseded"})
		return nil
	}

	if outcome.Err != nil {
		req.Status = StatusFailed
		req.Err = outcome.Err.Error()
		req.Result = ""
		s.emit(Event{Type: EventFailed, Position: ticket.Position, Kind: ticket.Kind, Tag: ticket.Tag, Detail: req.Err})
		return nil
	}

	req.Status = StatusSucceeded
	req.Result = outcome.Value
	req.Err = ""
	s.emit(Event{Type: EventSucceeded, Position: ticket.Position, Kind: ticket.Kind, Tag: ticket.Tag})

	if ticket.Kind != KindText {
		return nil
	}
	parsed := story.Parse(outcome.Value)
	page.structure = &parsed
	if next, ok := s.issueImage(page); ok {
		return []Ticket{next}
	}
	return nil
}

// sync re-derives contexts from the sequence, drops pages past the end and re-issues text for
// every page whose context changed.
func (s *Story) sync() []Ticket {
	contexts := story.BuildContexts(s.seed, s.sequence)
	if len(s.pages) > len(contexts) {
		for _, dropped := range s.pages[len(contexts):] {
			s.emit(Event{Type: EventTruncated, Position: dropped.position})
		}
		s.pages = s.pages[:len(contexts)]
	}
	if s.current > len(contexts)-1 {
		s.current = len(contexts) - 1
	}

	var tickets []Ticket
	for i, context := range contexts {
		if i >= len(s.pages) {
			s.pages = append(s.pages, newPage(i))
		}
		page := s.pages[i]
		if i == len(s.sequence) {
			// The last page has no completed entry, so nothing is selected on it.
			page.selected = -1
		}
		key := contextKey(context)
		if page.contextKey == key {
			continue
		}
		page.context = context
		page.contextKey = key
		page.selected = -1
		if ticket, ok := s.issueText(page); ok {
			tickets = append(tickets, ticket)
		}
	}
	return tickets
}

func (s *Story) issueText(page *Page) (Ticket, bool) {
	page.structure = nil
	page.image = Request{Status: StatusIdle}
	if story.IsEmpty(page.context) {
		page.text = Request{Status: StatusIdle}
		return Ticket{}, false
	}
	tag := s.nextTag()
	page.text = Request{Status: StatusPending, Tag: tag}
	s.emit(Event{Type: EventIssued, Position: page.position, Kind: KindText, Tag: tag})
	return Ticket{
		Position: page.position,
		Kind:     KindText,
		Tag:      tag,
		Messages: page.Context(),
	}, true
}

func (s *Story) issueImage(page *Page) (Ticket, bool) {
	if page.structure == nil {
		page.image = Request{Status: StatusIdle}
		return Ticket{}, false
	}
	prompt := story.IllustrationPrompt(page.structure.Description)
	if prompt == "" {
		page.image = Request{Status: StatusIdle}
		return Ticket{}, false
	}
	tag := s.nextTag()
	page.image = Request{Status: StatusPending, Tag: tag}
	s.emit(Event{Type: EventIssued, Position: page.position, Kind: KindImage, Tag: tag})
	return Ticket{
		Position: page.position,
		Kind:     KindImage,
		Tag:      tag,
		Prompt:   prompt,
	}, true
}

func (s *Story) nextTag() uint64 {
	s.lastTag++
	return s.lastTag
}

func (s *Story) emit(event Event) {
	if s.listener != nil {
		s.listener(event)
	}
}
