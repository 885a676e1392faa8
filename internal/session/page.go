package session

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"

	"github.com/csheth/adventure/internal/story"
)

// Page holds the request state for one position in the story.
type Page struct {
	position   int
	context    []story.Message
	contextKey string
	text       Request
	image      Request
	structure  *story.Structure
	selected   int
}

func newPage(position int) *Page {
	return &Page{
		position: position,
		text:     Request{Status: StatusIdle},
		image:    Request{Status: StatusIdle},
		selected: -1,
	}
}

// Position is the zero-based index of the page.
func (p *Page) Position() int { return p.position }

// Context returns a copy of the turns used to generate this page.
func (p *Page) Context() []story.Message {
	return append([]story.Message(nil), p.context...)
}

// Text returns the text request state.
func (p *Page) Text() Request { return p.text }

// Image returns the illustration request state.
func (p *Page) Image() Request { return p.image }

// Structure returns the parsed page once its text has arrived.
func (p *Page) Structure() (story.Structure, bool) {
	if p.structure == nil {
		return story.Structure{}, false
	}
	return *p.structure, true
}

// Selected returns the branch picked on this page, if any.
func (p *Page) Selected() (int, bool) {
	if p.selected < 0 {
		return 0, false
	}
	return p.selected, true
}

// CanRegenerate is false while the text request has not settled.
func (p *Page) CanRegenerate() bool {
	return p.text.Status == StatusSucceeded || p.text.Status == StatusFailed
}

// CanSelect reports whether choice is a valid branch right now.
func (p *Page) CanSelect(choice int) bool {
	if p.text.Status != StatusSucceeded || p.structure == nil {
		return false
	}
	return choice >= 0 && choice < len(p.structure.Choices)
}

func (p *Page) request(kind Kind) *Request {
	if kind == KindImage {
		return &p.image
	}
	return &p.text
}

func contextKey(context []story.Message) string {
	h := sha1.New()
	for _, message := range context {
		h.Write([]byte(message.Role))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(len(message.Content))))
		h.Write([]byte{0})
		h.Write([]byte(message.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
