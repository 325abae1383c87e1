package recon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOTXEnumerateParsesPassiveDNS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"passive_dns": [
			{"hostname": "www.example.com"},
			{"hostname": "api.example.com"},
			{"hostname": "other.notexample.com"},
			{"hostname": "www.example.com"},
			{"hostname": ""}
		]}`))
	}))
	defer srv.Close()
	overrideBaseURL(t, &otxBaseURL, srv.URL, "/passive_dns?d=%s")

	hosts, err := OTXEnumerate(context.Background(), "example.com", "test-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"www.example.com", "api.example.com"}
	if len(hosts) != len(want) {
		t.Fatalf("got %d hosts, want %d: %v", len(hosts), len(want), hosts)
	}
	for i, h := range want {
		if hosts[i] != h {
			t.Errorf("hosts[%d] = %q, want %q", i, hosts[i], h)
		}
	}
}

func TestOTXEnumerateEmptyPassiveDNS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"passive_dns": []}`))
	}))
	defer srv.Close()
	overrideBaseURL(t, &otxBaseURL, srv.URL, "/passive_dns?d=%s")

	hosts, err := OTXEnumerate(context.Background(), "example.com", "test-agent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 0 {
		t.Errorf("expected 0 hosts, got %v", hosts)
	}
}

func TestParseOTXHostsInvalidJSON(t *testing.T) {
	if _, err := parseOTXHosts([]byte("not json"), "example.com"); err == nil {
		t.Fatal("expected error on invalid JSON")
	}
}
