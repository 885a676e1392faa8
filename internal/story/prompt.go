package story

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Divider separates the narrative from the numbered options in generated pages. It has to match
// the wording InitialPrompt asks the backend to use.
const Divider = "Do you:"

// InitialPrompt seeds every story.
const InitialPrompt = `
Invent a choose-your-own-adventure book. Pick any plot you like, as long as it is gripping.

Follow these guidelines:
- Write in the second person, speaking directly to the reader
- Use vivid, evocative language and rich descriptions

Each page is at most 150 words and closes with exactly 3 options for what happens next, formatted like this:
` + Divider + `
#0: <first option>
#1: <second option>
#2: <third option>

Never describe what the reader does next until they have picked an option.

The first page, which introduces the protagonist's backstory, reads:
`

const illustrationTemplate = `Beautiful illustration for this passage in a story: %s
Do NOT include words or lettering of any kind!`

// IllustrationPrompt builds the image prompt for a page description. An empty description
// produces an empty prompt.
func IllustrationPrompt(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	return fmt.Sprintf(illustrationTemplate, description)
}

// Flatten renders a context as the single prompt string understood by prompt-only backends.
func Flatten(context []Message) string {
	var b strings.Builder
	for i, message := range context {
		switch {
		case i == 0:
			b.WriteString(message.Content)
		case message.Role == openai.ChatMessageRoleAssistant:
			b.WriteString(message.Content)
		default:
			b.WriteString("\n")
			b.WriteString(message.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// IsEmpty reports whether a context carries no prompt text at all.
func IsEmpty(context []Message) bool {
	for _, message := range context {
		if strings.TrimSpace(message.Content) != "" {
			return false
		}
	}
	return true
}
