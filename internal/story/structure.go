package story

import (
	"regexp"
	"strings"
)

var optionMarker = regexp.MustCompile(`#[0-9]:\s*`)

// Structure is the narrative/options split of one generated page.
type Structure struct {
	Description string
	// Choices is nil when the page carries no divider, e.g. an ending.
	Choices []string
}

// HasChoices reports whether the reader can branch from this page.
func (s Structure) HasChoices() bool {
	return len(s.Choices) > 0
}

// Parse splits generated text using Divider.
func Parse(text string) Structure {
	return ParseWith(text, Divider)
}

// ParseWith splits text at the first occurrence of divider. Text after the divider is cut on
// "#<digit>:" markers and blank segments are dropped.
func ParseWith(text, divider string) Structure {
	idx := -1
	if divider != "" {
		idx = strings.Index(text, divider)
	}
	if idx < 0 {
		return Structure{Description: text}
	}
	rest := strings.TrimSpace(text[idx+len(divider):])
	choices := make([]string, 0, 3)
	for _, segment := range optionMarker.Split(rest, -1) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		choices = append(choices, segment)
	}
	return Structure{Description: text[:idx], Choices: choices}
}

// Paragraphs returns the non-empty lines of the description.
func (s Structure) Paragraphs() []string {
	var out []string
	for _, line := range strings.Split(s.Description, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}
