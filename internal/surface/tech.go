package surface

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// serverProducts maps lowercased Server-header product tokens to the
// canonical names used by the outdated-version table.
var serverProducts = map[string]string{
	"apache":        "Apache",
	"nginx":         "nginx",
	"microsoft-iis": "IIS",
	"litespeed":     "LiteSpeed",
	"caddy":         "Caddy",
	"cloudflare":    "cloudflare",
	"openresty":     "openresty",
}

// bodyPatterns are presence checks over the response body. Versioned
// detections (jQuery, generator meta tags) are handled separately.
var bodyPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"WordPress", regexp.MustCompile(`(?i)wp-content/|wp-includes/`)},
	{"Drupal", regexp.MustCompile(`(?i)Drupal\.settings|/sites/default/files/`)},
	{"Joomla", regexp.MustCompile(`(?i)/media/jui/|com_content`)},
	{"React", regexp.MustCompile(`data-reactroot|react-dom`)},
	{"Angular", regexp.MustCompile(`ng-version=`)},
	{"Vue.js", regexp.MustCompile(`data-v-[0-9a-f]{8}`)},
	{"Django", regexp.MustCompile(`csrfmiddlewaretoken`)},
	{"Laravel", regexp.MustCompile(`laravel_session`)},
	{"ASP.NET", regexp.MustCompile(`__VIEWSTATE`)},
	{"Tomcat", regexp.MustCompile(`Apache Tomcat`)},
}

var (
	generatorRe = regexp.MustCompile(`(?i)<meta[^>]+name=["']generator["'][^>]+content=["']([^"']+)["']`)
	jqueryRe    = regexp.MustCompile(`(?i)jquery[-./]v?(\d+\.\d+(?:\.\d+)?)`)
	jqueryBare  = regexp.MustCompile(`(?i)jquery`)
)

// DetectTechnologies identifies server software and frameworks from response
// headers and body. Results are "Name" or "Name/version" strings, sorted and
// deduplicated; versioned detections win over bare ones.
func DetectTechnologies(headers http.Header, body []byte) []string {
	found := make(map[string]string) // canonical name -> emitted string

	if server := headers.Get("Server"); server != "" {
		if name, tech := parseServerHeader(server); name != "" {
			found[name] = tech
		}
	}

	if powered := headers.Get("X-Powered-By"); powered != "" {
		name, version, _ := strings.Cut(strings.TrimSpace(powered), "/")
		name = strings.TrimSpace(name)
		if name != "" {
			canon := name
			if strings.EqualFold(name, "php") {
				canon = "PHP"
			}
			if version != "" {
				found[canon] = canon + "/" + strings.TrimSpace(version)
			} else if _, ok := found[canon]; !ok {
				found[canon] = canon
			}
		}
	}

	for _, m := range generatorRe.FindAllSubmatch(body, -1) {
		if name, tech := parseGenerator(string(m[1])); name != "" {
			found[name] = tech
		}
	}

	for _, p := range bodyPatterns {
		if _, ok := found[p.name]; ok {
			continue
		}
		if p.re.Match(body) {
			found[p.name] = p.name
		}
	}

	if m := jqueryRe.FindSubmatch(body); m != nil {
		found["jQuery"] = "jQuery/" + string(m[1])
	} else if _, ok := found["jQuery"]; !ok && jqueryBare.Match(body) {
		found["jQuery"] = "jQuery"
	}

	if len(found) == 0 {
		return nil
	}
	techs := make([]string, 0, len(found))
	for _, t := range found {
		techs = append(techs, t)
	}
	sort.Strings(techs)
	return techs
}

// parseServerHeader extracts the leading product token from a Server header,
// e.g. "Apache/2.4.49 (Ubuntu)" -> ("Apache", "Apache/2.4.49").
func parseServerHeader(server string) (name, tech string) {
	first := strings.Fields(strings.TrimSpace(server))
	if len(first) == 0 {
		return "", ""
	}
	product, version, _ := strings.Cut(first[0], "/")
	canon, ok := serverProducts[strings.ToLower(product)]
	if !ok {
		canon = product
	}
	if version != "" {
		return canon, canon + "/" + version
	}
	return canon, canon
}

// parseGenerator interprets a generator meta tag value, e.g.
// "WordPress 5.8" -> ("WordPress", "WordPress/5.8").
func parseGenerator(content string) (name, tech string) {
	fields := strings.Fields(strings.TrimSpace(content))
	if len(fields) == 0 {
		return "", ""
	}
	name = strings.TrimSuffix(fields[0], "!")
	if len(fields) > 1 && fields[1] != "" && fields[1][0] >= '0' && fields[1][0] <= '9' {
		return name, name + "/" + fields[1]
	}
	return name, name
}
