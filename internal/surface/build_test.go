package surface

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("same body"), nil)
	b := HashContent([]byte("same body"), nil)
	c := HashContent([]byte("other body"), nil)

	if a != b {
		t.Errorf("identical bodies hash differently: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different bodies produced the same hash")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestHashContentNoiseFilter(t *testing.T) {
	filters := []*regexp.Regexp{regexp.MustCompile(`csrf_token=[a-f0-9]+`)}

	a := HashContent([]byte(`<input value="csrf_token=deadbeef"> body`), filters)
	b := HashContent([]byte(`<input value="csrf_token=cafe1234"> body`), filters)
	if a != b {
		t.Error("noise-filtered token still changes the hash")
	}

	c := HashContent([]byte(`<input value="csrf_token=deadbeef"> other`), filters)
	if a == c {
		t.Error("real content change hidden by noise filter")
	}
}

func TestBuildEndpointUnreachable(t *testing.T) {
	rec := BuildEndpoint(ProbeResult{Host: "x.example.com", URL: "https://x.example.com"}, nil)

	if rec.StatusCode != nil {
		t.Errorf("unreachable endpoint StatusCode = %d, want nil", *rec.StatusCode)
	}
	if rec.ContentHash != "" || rec.BodyLength != 0 || len(rec.Flags) != 0 {
		t.Errorf("unreachable endpoint carries content fields: %+v", rec)
	}
}

func TestBuildEndpointReachable(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "Apache/2.4.49")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Set-Cookie", "session=abc")

	rec := BuildEndpoint(ProbeResult{
		Host:       "admin.example.com",
		URL:        "https://admin.example.com",
		Reachable:  true,
		StatusCode: 200,
		Title:      "  Admin Portal  ",
		Body:       []byte("<html>admin</html>"),
		Headers:    h,
	}, nil)

	if rec.StatusCode == nil || *rec.StatusCode != 200 {
		t.Fatalf("StatusCode = %v, want 200", rec.StatusCode)
	}
	if rec.Title != "Admin Portal" {
		t.Errorf("Title = %q, want trimmed %q", rec.Title, "Admin Portal")
	}
	if rec.BodyLength != len("<html>admin</html>") {
		t.Errorf("BodyLength = %d, want %d", rec.BodyLength, len("<html>admin</html>"))
	}
	if !containsTech(rec.Technologies, "Apache/2.4.49") {
		t.Errorf("Technologies = %v, want Apache/2.4.49", rec.Technologies)
	}
	if rec.Headers["X-Frame-Options"] != "DENY" {
		t.Errorf("security header not retained: %v", rec.Headers)
	}
	if _, ok := rec.Headers["Set-Cookie"]; ok {
		t.Errorf("non-security header retained: %v", rec.Headers)
	}
	if !hasFlag(rec.Flags, "admin-keyword", SeverityHigh) {
		t.Errorf("admin url not flagged: %v", rec.Flags)
	}
	if !hasFlag(rec.Flags, "outdated-tech", SeverityHigh) {
		t.Errorf("outdated apache not flagged: %v", rec.Flags)
	}
}

func TestBuild(t *testing.T) {
	hosts := map[string][]string{
		"WWW.Example.com": {"203.0.113.7"},
		"api.example.com": {"203.0.113.8"},
	}
	probes := []ProbeResult{
		{
			Host:       "www.example.com",
			URL:        "https://WWW.example.com/",
			Reachable:  true,
			StatusCode: 200,
			Body:       []byte("hello"),
			Headers:    http.Header{},
		},
	}
	verdicts := []TakeoverVerdict{
		{Hostname: "gone.example.com", Confidence: ConfidenceHigh, Service: "heroku"},
		{Hostname: "fine.example.com", Confidence: ConfidenceNone},
		{Hostname: "maybe.example.com", Confidence: ConfidenceMedium, Service: "github"},
	}

	snap := Build("Example.COM", time.Now(), hosts, probes, verdicts, BuildConfig{})

	if snap.Domain != "example.com" {
		t.Errorf("Domain = %q, want lowercased", snap.Domain)
	}
	if _, ok := snap.Subdomains["www.example.com"]; !ok {
		t.Errorf("subdomain keys not lowercased: %v", snap.Subdomains)
	}
	if _, ok := snap.Endpoints["https://www.example.com"]; !ok {
		t.Errorf("endpoint keys not canonicalized: %v", endpointKeys(snap))
	}

	if len(snap.Takeovers) != 2 {
		t.Fatalf("retained %d verdicts, want 2 (medium and high only): %v", len(snap.Takeovers), snap.Takeovers)
	}
	// Sorted by hostname: gone before maybe.
	if snap.Takeovers[0].Hostname != "gone.example.com" || snap.Takeovers[1].Hostname != "maybe.example.com" {
		t.Errorf("takeovers not sorted: %v", snap.Takeovers)
	}
}

func endpointKeys(s *Snapshot) string {
	var keys []string
	for k := range s.Endpoints {
		keys = append(keys, k)
	}
	return strings.Join(keys, ", ")
}
