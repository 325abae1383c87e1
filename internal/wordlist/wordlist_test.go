package wordlist

import (
	"strings"
	"testing"
)

func TestSubdomainsNonEmpty(t *testing.T) {
	words := Subdomains()
	if len(words) < 500 {
		t.Fatalf("wordlist carries %d entries, want at least 500", len(words))
	}
}

func TestSubdomainsClean(t *testing.T) {
	seen := make(map[string]bool)
	for _, w := range Subdomains() {
		if w == "" {
			t.Fatal("empty entry")
		}
		if w != strings.TrimSpace(w) {
			t.Errorf("entry %q carries whitespace", w)
		}
		if strings.ContainsAny(w, " \t") {
			t.Errorf("entry %q is not a single label", w)
		}
		if seen[w] {
			t.Errorf("duplicate entry: %s", w)
		}
		seen[w] = true
	}
}
