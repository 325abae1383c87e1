package surface

import (
	"net/http"
	"testing"
)

func containsTech(techs []string, want string) bool {
	for _, tech := range techs {
		if tech == want {
			return true
		}
	}
	return false
}

func TestDetectTechnologiesHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"apache with version", "Server", "Apache/2.4.49 (Ubuntu)", "Apache/2.4.49"},
		{"nginx with version", "Server", "nginx/1.18.0", "nginx/1.18.0"},
		{"iis canonical name", "Server", "Microsoft-IIS/10.0", "IIS/10.0"},
		{"bare server token", "Server", "cloudflare", "cloudflare"},
		{"php powered by", "X-Powered-By", "PHP/7.4.3", "PHP/7.4.3"},
		{"express powered by", "X-Powered-By", "Express", "Express"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.header, tt.value)
			techs := DetectTechnologies(h, nil)
			if !containsTech(techs, tt.want) {
				t.Errorf("DetectTechnologies(%s: %s) = %v, want %q present", tt.header, tt.value, techs, tt.want)
			}
		})
	}
}

func TestDetectTechnologiesBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"wordpress asset path", `<link href="/wp-content/themes/x/style.css">`, "WordPress"},
		{"wordpress generator version", `<meta name="generator" content="WordPress 5.8">`, "WordPress/5.8"},
		{"drupal settings", `<script>Drupal.settings = {};</script>`, "Drupal"},
		{"versioned jquery", `<script src="/js/jquery-3.2.1.min.js"></script>`, "jQuery/3.2.1"},
		{"bare jquery", `<script src="/js/jquery.min.js"></script>`, "jQuery"},
		{"aspnet viewstate", `<input type="hidden" name="__VIEWSTATE" value="x">`, "ASP.NET"},
		{"django csrf", `<input type="hidden" name="csrfmiddlewaretoken" value="x">`, "Django"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			techs := DetectTechnologies(http.Header{}, []byte(tt.body))
			if !containsTech(techs, tt.want) {
				t.Errorf("DetectTechnologies(body) = %v, want %q present", techs, tt.want)
			}
		})
	}
}

func TestDetectTechnologiesVersionedWins(t *testing.T) {
	body := []byte(`<meta name="generator" content="WordPress 5.9"><link href="/wp-content/x.css">`)
	techs := DetectTechnologies(http.Header{}, body)
	if !containsTech(techs, "WordPress/5.9") {
		t.Fatalf("want versioned WordPress entry, got %v", techs)
	}
	if containsTech(techs, "WordPress") {
		t.Errorf("bare WordPress entry should be superseded by versioned one: %v", techs)
	}
}

func TestDetectTechnologiesEmpty(t *testing.T) {
	if techs := DetectTechnologies(http.Header{}, []byte("<html><body>hi</body></html>")); techs != nil {
		t.Errorf("plain page detected as %v, want nil", techs)
	}
}
