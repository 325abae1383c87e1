package store

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/driftsec/driftwatch/internal/surface"
)

func intPtr(n int) *int { return &n }

func sampleSnapshot() *surface.Snapshot {
	s := surface.Empty("example.com")
	s.CapturedAt = time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	s.Subdomains["www.example.com"] = []string{"192.0.2.10"}
	s.Subdomains["api.example.com"] = []string{"192.0.2.11", "2001:db8::1"}
	s.Endpoints["https://www.example.com"] = surface.EndpointRecord{
		StatusCode:   intPtr(200),
		Title:        "Example",
		BodyLength:   1234,
		ContentHash:  "deadbeef",
		Technologies: []string{"nginx"},
		Headers:      map[string]string{"Strict-Transport-Security": "max-age=63072000"},
		Flags:        []surface.Flag{{Category: "admin-keyword", Severity: surface.SeverityHigh, Message: "url contains admin"}},
	}
	s.Takeovers = []surface.TakeoverVerdict{{
		Hostname: "staging.example.com", CNAME: "old-app.herokuapp.com",
		Service: "heroku", Confidence: surface.ConfidenceHigh, Evidence: "No such app",
	}}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := &FileStore{Dir: t.TempDir()}
	want := sampleSnapshot()

	if err := fs.Save("example.com", want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := fs.Load("example.com")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got == nil {
		t.Fatal("Load() returned nil for a saved baseline")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip changed the snapshot:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadMissingBaseline(t *testing.T) {
	fs := &FileStore{Dir: t.TempDir()}

	got, err := fs.Load("example.com")
	if err != nil {
		t.Fatalf("Load() error: %v, want nil for a missing baseline", err)
	}
	if got != nil {
		t.Errorf("Load() = %+v, want nil", got)
	}
}

func TestLoadCorruptBaseline(t *testing.T) {
	dir := t.TempDir()
	fs := &FileStore{Dir: dir}

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{{"},
		{name: "truncated", content: `{"domain": "example.com", "subdo`},
		{name: "empty object", content: `{}`},
		{name: "wrong domain", content: `{"domain": "other.org"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "example.com_baseline.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := fs.Load("example.com"); err == nil {
				t.Error("Load() succeeded on a corrupt baseline")
			}
		})
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "baselines")
	fs := &FileStore{Dir: dir}

	if err := fs.Save("example.com", sampleSnapshot()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "example.com_baseline.json")); err != nil {
		t.Errorf("baseline file missing: %v", err)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	fs := &FileStore{Dir: dir}

	if err := fs.Save("example.com", sampleSnapshot()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestFilenameSanitization(t *testing.T) {
	dir := t.TempDir()
	fs := &FileStore{Dir: dir}

	if err := fs.Save("Sub/../Example.COM", sampleSnapshot()); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d files, want 1", len(entries))
	}
	if got := entries[0].Name(); got != "sub-..-example.com_baseline.json" {
		t.Errorf("filename = %q", got)
	}
}
