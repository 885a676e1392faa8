package tui

import "testing"

func TestPageLayoutUpdate(t *testing.T) {
	cases := []struct {
		name             string
		width            int
		height           int
		viewportWidth    int
		viewportHeight   int
		transcriptHeight int
	}{
		{name: "standard", width: 80, height: 24, viewportWidth: 76, viewportHeight: 9, transcriptHeight: 3},
		{name: "wide", width: 200, height: 40, viewportWidth: 196, viewportHeight: 21, transcriptHeight: 7},
		{name: "tiny", width: 30, height: 10, viewportWidth: 40, viewportHeight: 9, transcriptHeight: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := newPageLayout()
			layout.Update(tc.width, tc.height)
			if layout.viewportWidth != tc.viewportWidth {
				t.Fatalf("viewport width mismatch: got %d want %d", layout.viewportWidth, tc.viewportWidth)
			}
			if layout.viewportHeight != tc.viewportHeight {
				t.Fatalf("viewport height mismatch: got %d want %d", layout.viewportHeight, tc.viewportHeight)
			}
			if layout.transcriptHeight != tc.transcriptHeight {
				t.Fatalf("transcript height mismatch: got %d want %d", layout.transcriptHeight, tc.transcriptHeight)
			}
		})
	}
}

func TestIndentMultiline(t *testing.T) {
	got := indentMultiline("one\ntwo\nthree", "  ")
	if got != "one\n  two\n  three" {
		t.Fatalf("unexpected indent %q", got)
	}
}

func TestPreviewText(t *testing.T) {
	if got := previewText("  short  ", 10); got != "short" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := previewText("abcdefghijkl", 5); got != "abcd…" {
		t.Fatalf("unexpected preview %q", got)
	}
}
