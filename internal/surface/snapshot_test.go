package surface

import (
	"reflect"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/Admin",
			want: "https://example.com/Admin",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/x",
			want: "https://example.com/x",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80",
			want: "http://example.com",
		},
		{
			name: "keeps custom port",
			in:   "https://example.com:8443/x",
			want: "https://example.com:8443/x",
		},
		{
			name: "trims trailing slash",
			in:   "https://example.com/admin/",
			want: "https://example.com/admin",
		},
		{
			name: "trims bare root slash",
			in:   "https://example.com/",
			want: "https://example.com",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/docs#section",
			want: "https://example.com/docs",
		},
		{
			name: "keeps query string",
			in:   "https://example.com/search?q=1",
			want: "https://example.com/search?q=1",
		},
		{
			name: "passes schemeless input through",
			in:   "  example.com/path ",
			want: "example.com/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalURL(tt.in)
			if got != tt.want {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := CanonicalURL(got); again != got {
				t.Errorf("CanonicalURL(%q) not idempotent: second pass gave %q", got, again)
			}
		})
	}
}

func TestSnapshotNormalize(t *testing.T) {
	snap := &Snapshot{
		Domain: "example.com",
		Subdomains: map[string][]string{
			"API.Example.com": {"2.2.2.2", "1.1.1.1", "1.1.1.1"},
			"www.example.com": nil,
		},
		Endpoints: map[string]EndpointRecord{
			"https://API.example.com/": {BodyLength: 10},
			"https://api.example.com":  {BodyLength: 20},
		},
		Takeovers: []TakeoverVerdict{
			{Hostname: "Zz.example.com", Confidence: ConfidenceMedium},
			{Hostname: "aa.example.com", Confidence: ConfidenceHigh},
		},
	}

	snap.Normalize()

	wantSubs := map[string][]string{
		"api.example.com": {"1.1.1.1", "2.2.2.2"},
		"www.example.com": nil,
	}
	if !reflect.DeepEqual(snap.Subdomains, wantSubs) {
		t.Errorf("Subdomains = %v, want %v", snap.Subdomains, wantSubs)
	}

	if len(snap.Endpoints) != 1 {
		t.Fatalf("expected colliding endpoint keys to merge, got %d keys: %v",
			len(snap.Endpoints), snap.Endpoints)
	}
	rec, ok := snap.Endpoints["https://api.example.com"]
	if !ok {
		t.Fatalf("canonical endpoint key missing, have %v", snap.Endpoints)
	}
	if rec.BodyLength != 10 {
		t.Errorf("collision winner BodyLength = %d, want 10 (first key in sorted order)", rec.BodyLength)
	}

	if snap.Takeovers[0].Hostname != "aa.example.com" || snap.Takeovers[1].Hostname != "zz.example.com" {
		t.Errorf("takeovers not sorted by lowercased hostname: %v", snap.Takeovers)
	}

	// A second pass must change nothing.
	before := *snap
	snap.Normalize()
	if !reflect.DeepEqual(snap.Subdomains, before.Subdomains) ||
		!reflect.DeepEqual(snap.Endpoints, before.Endpoints) ||
		!reflect.DeepEqual(snap.Takeovers, before.Takeovers) {
		t.Error("Normalize is not idempotent")
	}
}

func TestIndexByHost(t *testing.T) {
	snap := &Snapshot{
		Domain: "example.com",
		Endpoints: map[string]EndpointRecord{
			"https://a.example.com/x": {BodyLength: 1},
			"https://a.example.com/y": {BodyLength: 2},
			"https://b.example.com":   {BodyLength: 3},
			"not a url":               {BodyLength: 4},
		},
	}

	idx := snap.IndexByHost()

	if len(idx) != 2 {
		t.Fatalf("IndexByHost returned %d hosts, want 2: %v", len(idx), idx)
	}
	if got := len(idx["a.example.com"]); got != 2 {
		t.Errorf("a.example.com has %d records, want 2", got)
	}
	if got := len(idx["b.example.com"]); got != 1 {
		t.Errorf("b.example.com has %d records, want 1", got)
	}
	// Records are ordered by URL, so /x comes before /y.
	if idx["a.example.com"][0].BodyLength != 1 {
		t.Errorf("records not in URL order: %v", idx["a.example.com"])
	}
}

func TestConfidenceAtLeast(t *testing.T) {
	if !ConfidenceHigh.AtLeast(ConfidenceMedium) {
		t.Error("high should be at least medium")
	}
	if !ConfidenceMedium.AtLeast(ConfidenceMedium) {
		t.Error("medium should be at least medium")
	}
	if ConfidenceNone.AtLeast(ConfidenceMedium) {
		t.Error("none should not be at least medium")
	}
}
