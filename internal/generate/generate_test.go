package generate

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestPickHTTPClientHonorsCustomClient(t *testing.T) {
	custom := &http.Client{Timeout: 42 * time.Second}
	if got := pickHTTPClient(custom, time.Second); got != custom {
		t.Fatalf("expected custom client to be returned")
	}
}

func TestPickHTTPClientUsesLongerTimeout(t *testing.T) {
	client := pickHTTPClient(nil, 0)
	if client.Timeout != defaultHTTPTimeout {
		t.Fatalf("expected default timeout %s, got %s", defaultHTTPTimeout, client.Timeout)
	}
	if got := pickHTTPClient(nil, 5*time.Second).Timeout; got != 5*time.Second {
		t.Fatalf("expected configured timeout, got %s", got)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "missing url", cfg: Config{}, wantErr: "required"},
		{name: "bad scheme", cfg: Config{BaseURL: "ftp://example.com"}, wantErr: "http or https"},
		{name: "bad encoding", cfg: Config{BaseURL: "http://example.com", Encoding: "xml"}, wantErr: "unknown encoding"},
		{name: "ok", cfg: Config{BaseURL: "https://example.com/", Encoding: "PROMPT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if client.Name() != "https://example.com (prompt)" {
					t.Fatalf("unexpected name: %s", client.Name())
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
