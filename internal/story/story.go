package story

import (
	"strconv"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one conversational turn sent to the text backend.
type Message = openai.ChatCompletionMessage

// CompletedPage records a generated page together with the branch the reader picked from it.
type CompletedPage struct {
	Content string `json:"content"`
	Choice  int    `json:"choice"`
}

// BuildContexts derives the backend context for every page position. The result always holds
// len(pages)+1 entries: the last one seeds the page that has not been generated yet.
func BuildContexts(seed string, pages []CompletedPage) [][]Message {
	contexts := make([][]Message, 0, len(pages)+1)
	current := []Message{{Role: openai.ChatMessageRoleUser, Content: seed}}
	contexts = append(contexts, current)
	for _, page := range pages {
		next := make([]Message, len(current), len(current)+2)
		copy(next, current)
		next = append(next,
			Message{Role: openai.ChatMessageRoleAssistant, Content: page.Content},
			Message{Role: openai.ChatMessageRoleUser, Content: strconv.Itoa(page.Choice)},
		)
		contexts = append(contexts, next)
		current = next
	}
	return contexts
}

// Truncate returns a copy of pages limited to the first n entries.
func Truncate(pages []CompletedPage, n int) []CompletedPage {
	if n < 0 {
		n = 0
	}
	if n > len(pages) {
		n = len(pages)
	}
	return append([]CompletedPage(nil), pages[:n]...)
}
