// Package notify turns change sets into channel dispatches and delivers
// them. The router decides what goes where; transports only format and
// send, so adding a channel is a new transport plus a config entry.
package notify

import (
	"fmt"
	"net/http"

	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/surface"
)

// Dispatch pairs one payload with the channel that should deliver it.
type Dispatch struct {
	Channel string  `json:"channel"`
	Payload Payload `json:"payload"`
}

// Payload is the channel-independent message body. Transports render it
// into their own wire formats but never change its content.
type Payload struct {
	Domain   string        `json:"domain"`
	Category diff.Category `json:"category"`
	// Priority is the most urgent tier among Items.
	Priority diff.Priority `json:"priority"`
	Title    string        `json:"title"`
	Items    []Item        `json:"items,omitempty"`
	// Baseline is set only on baseline_complete payloads.
	Baseline *BaselineSummary `json:"baseline,omitempty"`
}

// Item is one line of a payload: the subject that changed and a detail
// string carrying the literal before/after values.
type Item struct {
	Subject  string        `json:"subject"`
	Priority diff.Priority `json:"priority"`
	Detail   string        `json:"detail,omitempty"`
}

// BaselineSummary is the inventory overview sent when a baseline is
// established or rebuilt.
type BaselineSummary struct {
	Subdomains  int `json:"subdomains"`
	Endpoints   int `json:"endpoints"`
	OK          int `json:"status_2xx"`
	Redirects   int `json:"status_3xx"`
	ClientErrs  int `json:"status_4xx"`
	ServerErrs  int `json:"status_5xx"`
	Unreachable int `json:"unreachable"`
	Takeovers   int `json:"takeovers"`
	HighValue   int `json:"high_value_targets"`
}

// Summarize counts a snapshot's inventory for a baseline payload.
func Summarize(s *surface.Snapshot) *BaselineSummary {
	sum := &BaselineSummary{}
	if s == nil {
		return sum
	}
	sum.Subdomains = len(s.Subdomains)
	sum.Endpoints = len(s.Endpoints)
	sum.Takeovers = len(s.Takeovers)
	for _, rec := range s.Endpoints {
		if rec.StatusCode == nil {
			sum.Unreachable++
			continue
		}
		switch *rec.StatusCode / 100 {
		case 2:
			sum.OK++
		case 3:
			sum.Redirects++
		case 4:
			sum.ClientErrs++
		case 5:
			sum.ServerErrs++
		}
		if hasHighFlag(rec.Flags) {
			sum.HighValue++
		}
	}
	return sum
}

func hasHighFlag(flags []surface.Flag) bool {
	for _, f := range flags {
		if f.Severity == surface.SeverityHigh {
			return true
		}
	}
	return false
}

// Lines renders the payload as plain text rows shared by the text
// transports.
func (p Payload) Lines() []string {
	if p.Baseline != nil {
		return p.Baseline.Lines()
	}
	lines := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		line := item.Subject
		if item.Detail != "" {
			line += ": " + item.Detail
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", item.Priority, line))
	}
	return lines
}

// Lines renders the summary as human-readable rows for text transports.
func (b *BaselineSummary) Lines() []string {
	lines := []string{
		fmt.Sprintf("subdomains: %d", b.Subdomains),
		fmt.Sprintf("endpoints: %d (2xx %d, 3xx %d, 4xx %d, 5xx %d, unreachable %d)",
			b.Endpoints, b.OK, b.Redirects, b.ClientErrs, b.ServerErrs, b.Unreachable),
	}
	if b.Takeovers > 0 {
		lines = append(lines, fmt.Sprintf("takeover candidates: %d", b.Takeovers))
	}
	if b.HighValue > 0 {
		lines = append(lines, fmt.Sprintf("high value targets: %d", b.HighValue))
	}
	return lines
}

func statusString(code *int) string {
	if code == nil {
		return "unreachable"
	}
	return fmt.Sprintf("%d %s", *code, http.StatusText(*code))
}
