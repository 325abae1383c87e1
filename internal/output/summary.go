package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/driftsec/driftwatch/internal/engine"
)

// Version is set via ldflags at build time.
var Version = "dev"

// WriteHeader prints the driftwatch banner.
func WriteHeader(w io.Writer, noColor bool) {
	if noColor {
		fmt.Fprintf(w, "driftwatch %s — https://github.com/driftsec/driftwatch\n\n", Version)
	} else {
		fmt.Fprintf(w, "\033[1mdriftwatch %s\033[0m — https://github.com/driftsec/driftwatch\n\n", Version)
	}
}

// WriteSummary prints the post-run summary for one domain.
func WriteSummary(w io.Writer, report *engine.Report, noColor bool) {
	s := report.Summary

	fmt.Fprintln(w)
	if noColor {
		fmt.Fprintf(w, "Domain: %s\n", report.Domain)
		fmt.Fprintf(w, "Inventory: %d subdomains, %d endpoints\n", s.Subdomains, s.Endpoints)
	} else {
		fmt.Fprintf(w, "\033[1mDomain:\033[0m %s\n", report.Domain)
		fmt.Fprintf(w, "\033[1mInventory:\033[0m %d subdomains, %d endpoints\n", s.Subdomains, s.Endpoints)
	}

	if s.Takeovers > 0 {
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintf(w, "! %s\n", plural(s.Takeovers, "takeover candidate"))
		} else {
			fmt.Fprintf(w, "\033[31m!\033[0m %s\n", plural(s.Takeovers, "takeover candidate"))
		}
		for i := range report.Snapshot.Takeovers {
			v := &report.Snapshot.Takeovers[i]
			fmt.Fprintf(w, "  %s -> %s\n", v.Hostname, verdictDetail(v))
		}
	}

	if report.BaselineRun {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Baseline recorded; future runs report changes only.")
	} else if s.Changes > 0 {
		sev := s.Severity
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintf(w, "Changes since baseline: %d (%d critical, %d high, %d medium, %d low)\n",
				s.Changes, sev.Critical, sev.High, sev.Medium, sev.Low)
		} else {
			fmt.Fprintf(w, "\033[1mChanges since baseline:\033[0m %d (%d critical, %d high, %d medium, %d low)\n",
				s.Changes, sev.Critical, sev.High, sev.Medium, sev.Low)
		}
	} else {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No changes since baseline.")
	}

	if s.Dispatched > 0 {
		fmt.Fprintf(w, "Notifications: %d dispatched\n", s.Dispatched)
	}

	if len(report.DeliveryErrors) > 0 {
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintf(w, "! %s failed to deliver\n", plural(len(report.DeliveryErrors), "notification"))
		} else {
			fmt.Fprintf(w, "\033[33m!\033[0m %s failed to deliver\n", plural(len(report.DeliveryErrors), "notification"))
		}
		for _, msg := range report.DeliveryErrors {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w)
		if noColor {
			fmt.Fprintf(w, "! %s\n", plural(len(report.Warnings), "warning"))
		} else {
			fmt.Fprintf(w, "\033[33m!\033[0m %s\n", plural(len(report.Warnings), "warning"))
		}
		for _, msg := range report.Warnings {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// joinAddrs renders a resolved address list for display.
func joinAddrs(addrs []string) string {
	if len(addrs) == 0 {
		return "does not resolve"
	}
	return strings.Join(addrs, ", ")
}
