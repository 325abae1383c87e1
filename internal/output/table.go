package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/engine"
	"github.com/driftsec/driftwatch/internal/surface"
)

// WriteTakeovers renders the takeover candidates as a styled table.
func WriteTakeovers(w io.Writer, report *engine.Report, noColor bool) {
	takeovers := report.Snapshot.Takeovers
	if len(takeovers) == 0 {
		fmt.Fprintln(w, "\nNo takeover candidates.")
		return
	}

	headers := []string{"Host", "CNAME", "Service", "Confidence", "Evidence"}
	var rows [][]string
	confidences := make([]surface.Confidence, 0, len(takeovers))
	for _, v := range takeovers {
		service := v.Service
		if service == "" {
			service = "unmatched"
		}
		rows = append(rows, []string{
			v.Hostname,
			truncate(v.CNAME, 40),
			service,
			string(v.Confidence),
			truncate(v.Evidence, 40),
		})
		confidences = append(confidences, v.Confidence)
	}

	fmt.Fprintln(w)
	if noColor {
		writeSimpleTable(w, headers, rows)
		return
	}

	t := table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			if row >= 0 && row < len(confidences) && confidences[row] == surface.ConfidenceHigh {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

// WriteChanges renders the change set as a styled table, one row per
// change item.
func WriteChanges(w io.Writer, report *engine.Report, noColor bool) {
	items := report.Changes.Items(report.Snapshot)
	if len(items) == 0 {
		fmt.Fprintln(w, "\nNo changes to display.")
		return
	}

	headers := []string{"Change", "Subject", "Detail"}
	var rows [][]string
	categories := make([]diff.Category, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			categoryLabel(item.Category),
			truncate(item.Subject, 45),
			truncate(changeDetail(item, report.Snapshot), 60),
		})
		categories = append(categories, item.Category)
	}

	fmt.Fprintln(w)
	if noColor {
		writeSimpleTable(w, headers, rows)
		return
	}

	t := table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			if row >= 0 && row < len(categories) {
				return lipgloss.NewStyle().Foreground(categoryColor(categories[row]))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

// WriteInventory renders the full endpoint inventory, used after a
// baseline run where a change table would just repeat everything.
func WriteInventory(w io.Writer, report *engine.Report, noColor bool) {
	endpoints := report.Snapshot.Endpoints
	if len(endpoints) == 0 {
		fmt.Fprintln(w, "\nNo endpoints discovered.")
		return
	}

	urls := make([]string, 0, len(endpoints))
	for url := range endpoints {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	headers := []string{"Endpoint", "Status", "Title", "Technologies"}
	var rows [][]string
	for _, url := range urls {
		rec := endpoints[url]
		rows = append(rows, []string{
			truncate(url, 45),
			statusLabel(rec.StatusCode),
			truncate(rec.Title, 30),
			truncate(strings.Join(rec.Technologies, ", "), 30),
		})
	}

	fmt.Fprintln(w)
	if noColor {
		writeSimpleTable(w, headers, rows)
		return
	}

	t := table.New().
		Headers(headers...).
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		})

	for _, row := range rows {
		t.Row(row...)
	}

	fmt.Fprintln(w, t.Render())
}

func categoryLabel(c diff.Category) string {
	switch c {
	case diff.CategoryTakeover:
		return "takeover"
	case diff.CategoryResolvedTakeover:
		return "takeover resolved"
	case diff.CategoryNewSubdomain:
		return "new subdomain"
	case diff.CategoryRemovedSubdomain:
		return "removed subdomain"
	case diff.CategoryNewEndpoint:
		return "new endpoint"
	case diff.CategoryRemovedEndpoint:
		return "removed endpoint"
	case diff.CategoryChangedEndpoint:
		return "endpoint changed"
	default:
		return string(c)
	}
}

func categoryColor(c diff.Category) lipgloss.Color {
	switch c {
	case diff.CategoryTakeover:
		return lipgloss.Color("196")
	case diff.CategoryResolvedTakeover:
		return lipgloss.Color("78")
	case diff.CategoryNewSubdomain, diff.CategoryNewEndpoint:
		return lipgloss.Color("114")
	case diff.CategoryRemovedSubdomain, diff.CategoryRemovedEndpoint:
		return lipgloss.Color("245")
	case diff.CategoryChangedEndpoint:
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("250")
	}
}

// changeDetail builds the human-readable cell for one change item.
func changeDetail(item diff.ChangeItem, snap *surface.Snapshot) string {
	switch item.Category {
	case diff.CategoryTakeover:
		return verdictDetail(item.Verdict)
	case diff.CategoryResolvedTakeover:
		return "was " + verdictDetail(item.Verdict)
	case diff.CategoryNewSubdomain:
		return joinAddrs(snap.Subdomains[item.Subject])
	case diff.CategoryNewEndpoint:
		if rec, ok := snap.Endpoints[item.Subject]; ok {
			return endpointDetail(rec)
		}
		return ""
	case diff.CategoryChangedEndpoint:
		return deltaDetail(item.Delta)
	default:
		return ""
	}
}

func verdictDetail(v *surface.TakeoverVerdict) string {
	target := v.CNAME
	if target == "" {
		target = "(no cname)"
	}
	service := v.Service
	if service == "" {
		service = "unmatched"
	}
	return fmt.Sprintf("%s (%s, %s)", target, service, v.Confidence)
}

func endpointDetail(rec surface.EndpointRecord) string {
	parts := []string{statusLabel(rec.StatusCode)}
	if rec.Title != "" {
		parts = append(parts, rec.Title)
	}
	return strings.Join(parts, ", ")
}

func deltaDetail(d *diff.EndpointDelta) string {
	if d == nil {
		return ""
	}
	var parts []string
	if d.Status != nil {
		parts = append(parts, fmt.Sprintf("status %s -> %s", statusLabel(d.Status.Old), statusLabel(d.Status.New)))
	}
	if d.Title != nil {
		parts = append(parts, fmt.Sprintf("title %q -> %q", d.Title.Old, d.Title.New))
	}
	if d.Body != nil {
		sign := "+"
		if d.Body.NewLength < d.Body.OldLength {
			sign = "-"
		}
		parts = append(parts, fmt.Sprintf("body %s%.1f%%", sign, d.Body.DiffPercent))
	}
	if d.Technologies != nil {
		var techs []string
		for _, t := range d.Technologies.Added {
			techs = append(techs, "+"+t)
		}
		for _, t := range d.Technologies.Removed {
			techs = append(techs, "-"+t)
		}
		parts = append(parts, strings.Join(techs, " "))
	}
	if n := len(d.NewFlags); n > 0 {
		parts = append(parts, plural(n, "new flag"))
	}
	return strings.Join(parts, "; ")
}

func statusLabel(status *int) string {
	if status == nil {
		return "unreachable"
	}
	return fmt.Sprintf("%d", *status)
}

func writeSimpleTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, " | ")
		}
		fmt.Fprintf(w, "%-*s", widths[i], h)
	}
	fmt.Fprintln(w)

	for i, width := range widths {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", width))
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
