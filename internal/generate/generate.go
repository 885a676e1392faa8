package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/csheth/adventure/internal/story"
)

const (
	textPath  = "/api/generate-text"
	imagePath = "/api/generate-image"
)

// Generations can take well over a minute; the caller's context still governs cancellation.
const defaultHTTPTimeout = 3 * time.Minute

// Encoding selects how page context is sent to the text endpoint.
type Encoding string

const (
	// EncodingMessages sends {"messages": [...]} with one entry per turn.
	EncodingMessages Encoding = "messages"
	// EncodingPrompt sends {"prompt": "..."} with the turns flattened into one string.
	EncodingPrompt Encoding = "prompt"
)

// ParseEncoding validates an encoding name. An empty value selects EncodingMessages.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(value))) {
	case "", EncodingMessages:
		return EncodingMessages, nil
	case EncodingPrompt:
		return EncodingPrompt, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want %q or %q)", value, EncodingMessages, EncodingPrompt)
	}
}

// Config describes how to reach the generation backend.
type Config struct {
	BaseURL    string
	Encoding   Encoding
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client produces page text and illustrations.
type Client interface {
	GenerateText(ctx context.Context, messages []story.Message) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Name() string
}

// New validates cfg and returns a backend client.
func New(cfg Config) (Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must be http or https, got %q", base)
	}
	encoding, err := ParseEncoding(string(cfg.Encoding))
	if err != nil {
		return nil, err
	}
	return &apiClient{
		base:     base,
		encoding: encoding,
		client:   pickHTTPClient(cfg.HTTPClient, cfg.Timeout),
	}, nil
}

func pickHTTPClient(custom *http.Client, timeout time.Duration) *http.Client {
	if custom != nil {
		return custom
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}
