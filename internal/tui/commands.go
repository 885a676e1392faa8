package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/adventure/internal/generate"
	"github.com/csheth/adventure/internal/illustration"
	"github.com/csheth/adventure/internal/session"
)

var (
	errNoBackend = errors.New("no story backend configured")
	errNoCache   = errors.New("illustration cache unavailable")
)

type generationResultMsg struct {
	outcome session.Outcome
}

type illustrationSavedMsg struct {
	url  string
	path string
	err  error
}

func generationJob(client generate.Client, ticket session.Ticket) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		if client == nil {
			return generationResultMsg{outcome: session.Outcome{Ticket: ticket, Err: errNoBackend}}, errNoBackend
		}
		var (
			value string
			err   error
		)
		switch ticket.Kind {
		case session.KindImage:
			value, err = client.GenerateImage(ctx, ticket.Prompt)
		default:
			value, err = client.GenerateText(ctx, ticket.Messages)
		}
		return generationResultMsg{outcome: session.Outcome{Ticket: ticket, Value: value, Err: err}}, err
	}
}

func saveIllustrationJob(cache *illustration.Cache, url string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		if cache == nil {
			return illustrationSavedMsg{url: url, err: errNoCache}, errNoCache
		}
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		path, err := cache.Fetch(ctx, url)
		return illustrationSavedMsg{url: url, path: path, err: err}, err
	}
}

func trimmedChoice(value string) string {
	const limit = 60
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
