// Package wordlist embeds the subdomain candidate list used by the
// brute-force discovery source.
package wordlist

import (
	"bufio"
	"bytes"
	_ "embed"
	"strings"
	"sync"
)

//go:embed subdomains.txt
var raw []byte

var (
	once  sync.Once
	words []string
)

// Subdomains returns the embedded candidate labels with comments and blank
// lines stripped. The slice is parsed once and shared; callers must not
// mutate it.
func Subdomains() []string {
	once.Do(func() {
		scanner := bufio.NewScanner(bytes.NewReader(raw))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
	})
	return words
}
