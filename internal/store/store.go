// Package store persists per-domain baseline snapshots as JSON files on
// disk, one <domain>_baseline.json per domain.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/driftsec/driftwatch/internal/surface"
)

// FileStore keeps baselines under Dir. The zero value with an empty Dir
// stores in the working directory.
type FileStore struct {
	Dir string
}

// Load returns the stored baseline for domain, or nil when none exists
// yet. A file that exists but does not parse is an error: diffing against
// a corrupt baseline would report garbage.
func (f *FileStore) Load(domain string) (*surface.Snapshot, error) {
	raw, err := os.ReadFile(f.path(domain))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read baseline: %w", err)
	}

	var snap surface.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse baseline for %s: %w", domain, err)
	}
	if snap.Domain == "" {
		return nil, fmt.Errorf("baseline for %s carries no domain", domain)
	}
	if !strings.EqualFold(snap.Domain, domain) {
		return nil, fmt.Errorf("baseline for %s belongs to %s", domain, snap.Domain)
	}
	return &snap, nil
}

// Save replaces domain's baseline with snap, creating Dir on first use.
// The write goes through a temp file and a rename so a crash never leaves
// a partial baseline behind.
func (f *FileStore) Save(domain string, snap *surface.Snapshot) error {
	if f.Dir != "" {
		if err := os.MkdirAll(f.Dir, 0o755); err != nil {
			return fmt.Errorf("create baseline dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	raw = append(raw, '\n')

	path := f.path(domain)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

func (f *FileStore) path(domain string) string {
	return filepath.Join(f.Dir, sanitize(domain)+"_baseline.json")
}

// sanitize keeps domain-derived filenames flat and shell-safe.
func sanitize(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, domain)
}
