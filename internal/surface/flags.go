package surface

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Flag categories produced by the heuristics below.
const (
	flagOutdatedTech  = "outdated-tech"
	flagMissingHeader = "missing-security-header"
	flagDirListing    = "directory-listing"
	flagDefaultPage   = "default-page"
	keywordFlagSuffix = "-keyword"
)

// highValueKeywords maps a keyword group to the substrings that mark a URL or
// title as a high-value target.
var highValueKeywords = map[string][]string{
	"admin":     {"admin", "administrator", "console", "dashboard", "panel", "manage"},
	"auth":      {"login", "signin", "authenticate", "auth", "sso", "oauth"},
	"backup":    {"backup", "bak", "old", "archive", "dump", "sql"},
	"dev":       {"dev", "development", "test", "staging", "debug", "beta"},
	"api":       {"api", "graphql", "rest", "endpoint", "swagger", "docs"},
	"upload":    {"upload", "uploader", "file", "attachment", "media"},
	"sensitive": {"config", "env", "secret", "key", "token", "password"},
	"internal":  {"internal", "private", "corp", "vpn", "intranet"},
}

// highSeverityGroups escalate a URL keyword match from medium to high.
var highSeverityGroups = map[string]bool{
	"admin":     true,
	"backup":    true,
	"upload":    true,
	"sensitive": true,
}

// outdatedVersions lists version prefixes considered outdated per product.
// Product names must match what DetectTechnologies emits before the slash.
var outdatedVersions = map[string][]string{
	"Apache":    {"2.4.49", "2.4.50"},
	"nginx":     {"1.18.0", "1.19.0"},
	"PHP":       {"5.6", "7.3", "7.4"},
	"WordPress": {"5.8", "5.9"},
	"jQuery":    {"1.", "2.", "3.0", "3.1", "3.2"},
	"Drupal":    {"7.", "8."},
	"Joomla":    {"3."},
	"IIS":       {"8.5", "10.0"},
}

// securityHeaderNames is the subset of response headers the snapshot retains
// and whose absence on a 200 response is flagged.
var securityHeaderNames = []string{
	"Content-Security-Policy",
	"Strict-Transport-Security",
	"X-Content-Type-Options",
	"X-Frame-Options",
}

var defaultPageTitles = []string{
	"apache", "nginx", "welcome", "default page", "test page", "it works",
}

// EvaluateFlags runs the high-value and hygiene heuristics over one probed
// endpoint and returns the raised flags, sorted for determinism.
func EvaluateFlags(rawURL, title string, statusCode int, headers http.Header, technologies []string) []Flag {
	var flags []Flag

	urlLower := strings.ToLower(rawURL)
	titleLower := strings.ToLower(title)
	flagged := make(map[string]bool)

	for group, words := range highValueKeywords {
		for _, w := range words {
			if !strings.Contains(urlLower, w) {
				continue
			}
			severity := SeverityMedium
			if highSeverityGroups[group] {
				severity = SeverityHigh
			}
			flags = append(flags, Flag{
				Category: group + keywordFlagSuffix,
				Severity: severity,
				Message:  fmt.Sprintf("high-value target: %s (%q in url)", group, w),
			})
			flagged[group] = true
			break
		}
	}

	for group, words := range highValueKeywords {
		if flagged[group] {
			continue
		}
		for _, w := range words {
			if !strings.Contains(titleLower, w) {
				continue
			}
			flags = append(flags, Flag{
				Category: group + keywordFlagSuffix,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("high-value target: %s (%q in title)", group, w),
			})
			break
		}
	}

	for _, tech := range technologies {
		name, version, ok := strings.Cut(tech, "/")
		if !ok || version == "" {
			continue
		}
		for _, outdated := range outdatedVersions[name] {
			if strings.HasPrefix(version, outdated) {
				flags = append(flags, Flag{
					Category: flagOutdatedTech,
					Severity: SeverityHigh,
					Message:  fmt.Sprintf("outdated %s %s", name, version),
				})
				break
			}
		}
	}

	if strings.Contains(titleLower, "index of") {
		flags = append(flags, Flag{
			Category: flagDirListing,
			Severity: SeverityMedium,
			Message:  "directory listing exposed",
		})
	}

	for _, d := range defaultPageTitles {
		if strings.Contains(titleLower, d) {
			flags = append(flags, Flag{
				Category: flagDefaultPage,
				Severity: SeverityLow,
				Message:  fmt.Sprintf("default or placeholder page (%q)", d),
			})
			break
		}
	}

	if statusCode == http.StatusOK {
		for _, name := range securityHeaderNames {
			if headers.Get(name) == "" {
				flags = append(flags, Flag{
					Category: flagMissingHeader,
					Severity: SeverityLow,
					Message:  "missing " + name,
				})
			}
		}
	}

	sortFlags(flags)
	return flags
}

func sortFlags(flags []Flag) {
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Category != flags[j].Category {
			return flags[i].Category < flags[j].Category
		}
		return flags[i].Message < flags[j].Message
	})
}
