package tui

import (
	"fmt"
	"time"

	"github.com/csheth/adventure/internal/session"
)

const maxLogEntries = 200

type logEntry struct {
	At      time.Time
	Text    string
	Failure bool
}

func describeEvent(event session.Event) logEntry {
	entry := logEntry{At: time.Now()}
	page := event.Position + 1
	switch event.Type {
	case session.EventIssued:
		entry.Text = fmt.Sprintf("Page %d: requesting %s (#%d)", page, event.Kind, event.Tag)
	case session.EventSucceeded:
		entry.Text = fmt.Sprintf("Page %d: %s ready (#%d)", page, event.Kind, event.Tag)
	case session.EventFailed:
		entry.Text = fmt.Sprintf("Page %d: %s failed: %s", page, event.Kind, event.Detail)
		entry.Failure = true
	case session.EventDiscarded:
		entry.Text = fmt.Sprintf("Page %d: dropped %s result #%d (%s)", page, event.Kind, event.Tag, event.Detail)
	case session.EventTruncated:
		entry.Text = fmt.Sprintf("Page %d and later removed", page)
	case session.EventChoiceSelected:
		entry.Text = fmt.Sprintf("Page %d: chose %q", page, trimmedChoice(event.Detail))
	case session.EventRegenerated:
		entry.Text = fmt.Sprintf("Page %d: regenerating", page)
	default:
		entry.Text = fmt.Sprintf("Page %d: %s", page, event.Type)
	}
	return entry
}

func statusLabel(status session.Status) string {
	switch status {
	case session.StatusPending:
		return "working…"
	case session.StatusSucceeded:
		return "ready"
	case session.StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}
