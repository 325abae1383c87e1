// Package config loads the YAML configuration file, layers it over the
// built-in defaults, and validates the result before anything else runs.
// A bad config is fatal at startup, never discovered mid-scan.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/driftsec/driftwatch/internal/diff"
	"github.com/driftsec/driftwatch/internal/notify"
)

// Duration wraps time.Duration so YAML values like "10s" parse.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full file layout.
type Config struct {
	Targets       Targets       `yaml:"targets"`
	Monitoring    Monitoring    `yaml:"monitoring"`
	Discovery     Discovery     `yaml:"discovery"`
	HTTP          HTTP          `yaml:"http"`
	Notifications Notifications `yaml:"notifications"`
	// Priorities, when set, replaces the built-in classification table.
	Priorities []diff.Rule `yaml:"priorities"`
}

// Targets names what to scan.
type Targets struct {
	Domains []string `yaml:"domains"`
	// DomainsFile points at a newline-separated domain list merged into
	// Domains at load time.
	DomainsFile string `yaml:"domains_file"`
}

// Monitoring tunes the scan cycle.
type Monitoring struct {
	BaselineDir      string   `yaml:"baseline_dir"`
	Concurrency      int      `yaml:"concurrency"`
	Timeout          Duration `yaml:"timeout"`
	MinChangePercent float64  `yaml:"min_change_percent"`
	// FilterNoise lists regexes stripped from response bodies before
	// hashing, so rotating tokens never register as content changes.
	FilterNoise []string `yaml:"filter_noise"`

	noise []*regexp.Regexp
}

// Discovery toggles the subdomain sources.
type Discovery struct {
	CrtSh        bool `yaml:"crtsh"`
	HackerTarget bool `yaml:"hackertarget"`
	OTX          bool `yaml:"otx"`
	Brute        bool `yaml:"brute"`
	// AXFR attempts zone transfers against the domain's own nameservers.
	// Off by default: most targets refuse, and the attempt is loud.
	AXFR     bool   `yaml:"axfr"`
	Resolver string `yaml:"resolver"`
}

// HTTP tunes the endpoint prober.
type HTTP struct {
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"user_agent"`
	// Insecure skips TLS verification. On by default: parked and dangling
	// hosts rarely carry valid certificates, and those are exactly the
	// ones worth probing.
	Insecure bool `yaml:"insecure"`
}

// ChannelSettings is the part every notification channel shares.
type ChannelSettings struct {
	Enabled  bool     `yaml:"enabled"`
	NotifyOn []string `yaml:"notify_on"`
}

type SlackChannel struct {
	ChannelSettings `yaml:",inline"`
	WebhookURL      string `yaml:"webhook_url"`
}

type DiscordChannel struct {
	ChannelSettings `yaml:",inline"`
	WebhookURL      string `yaml:"webhook_url"`
}

type TelegramChannel struct {
	ChannelSettings `yaml:",inline"`
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
}

type EmailChannel struct {
	ChannelSettings `yaml:",inline"`
	SMTPHost        string   `yaml:"smtp_host"`
	SMTPPort        int      `yaml:"smtp_port"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	From            string   `yaml:"from"`
	To              []string `yaml:"to"`
}

type DesktopChannel struct {
	ChannelSettings `yaml:",inline"`
}

type StreamChannel struct {
	ChannelSettings `yaml:",inline"`
	URL             string `yaml:"url"`
}

// Notifications holds every delivery channel.
type Notifications struct {
	Slack    SlackChannel    `yaml:"slack"`
	Discord  DiscordChannel  `yaml:"discord"`
	Telegram TelegramChannel `yaml:"telegram"`
	Email    EmailChannel    `yaml:"email"`
	Desktop  DesktopChannel  `yaml:"desktop"`
	Stream   StreamChannel   `yaml:"stream"`
}

// Default returns the configuration used when the file leaves a setting
// out.
func Default() *Config {
	allOn := []string{string(notify.TriggerAll)}
	return &Config{
		Monitoring: Monitoring{
			BaselineDir:      "baselines",
			Concurrency:      20,
			Timeout:          Duration(10 * time.Second),
			MinChangePercent: diff.DefaultMinChangePercent,
		},
		Discovery: Discovery{
			CrtSh:        true,
			HackerTarget: true,
			OTX:          true,
			Brute:        true,
			Resolver:     "8.8.8.8:53",
		},
		HTTP: HTTP{
			Timeout:   Duration(10 * time.Second),
			UserAgent: "driftwatch/1.0 (+https://github.com/driftsec/driftwatch)",
			Insecure:  true,
		},
		Notifications: Notifications{
			Slack:    SlackChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}},
			Discord:  DiscordChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}},
			Telegram: TelegramChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}},
			Email:    EmailChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}, SMTPPort: 587},
			Desktop:  DesktopChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}},
			Stream:   StreamChannel{ChannelSettings: ChannelSettings{NotifyOn: allOn}},
		},
	}
}

// Load reads path, layers it over Default, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes raw YAML over the defaults and validates it. Unknown keys
// are rejected so typos never silently disable a channel.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and compiles the noise filters. It is
// called by Load; callers building a Config in code run it themselves.
func (c *Config) Validate() error {
	m := &c.Monitoring
	if m.BaselineDir == "" {
		return errors.New("monitoring.baseline_dir must not be empty")
	}
	if m.Concurrency < 1 {
		return fmt.Errorf("monitoring.concurrency must be at least 1, got %d", m.Concurrency)
	}
	if m.Timeout.Std() <= 0 {
		return errors.New("monitoring.timeout must be positive")
	}
	if m.MinChangePercent < 0 {
		return fmt.Errorf("monitoring.min_change_percent must not be negative, got %g", m.MinChangePercent)
	}
	m.noise = m.noise[:0]
	for _, pattern := range m.FilterNoise {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("monitoring.filter_noise %q: %w", pattern, err)
		}
		m.noise = append(m.noise, re)
	}

	if c.Discovery.Resolver != "" {
		if _, _, err := net.SplitHostPort(c.Discovery.Resolver); err != nil {
			return fmt.Errorf("discovery.resolver %q must be host:port: %w", c.Discovery.Resolver, err)
		}
	}
	if c.HTTP.Timeout.Std() <= 0 {
		return errors.New("http.timeout must be positive")
	}

	if err := c.Notifications.validate(); err != nil {
		return err
	}

	for i, rule := range c.Priorities {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("priorities[%d]: %w", i, err)
		}
	}
	return nil
}

func (n *Notifications) validate() error {
	channels := []struct {
		name     string
		settings ChannelSettings
		check    func() error
	}{
		{"slack", n.Slack.ChannelSettings, func() error { return checkWebhook(n.Slack.WebhookURL) }},
		{"discord", n.Discord.ChannelSettings, func() error { return checkWebhook(n.Discord.WebhookURL) }},
		{"telegram", n.Telegram.ChannelSettings, func() error {
			if n.Telegram.BotToken == "" || n.Telegram.ChatID == "" {
				return errors.New("bot_token and chat_id are required")
			}
			return nil
		}},
		{"email", n.Email.ChannelSettings, func() error {
			if n.Email.SMTPHost == "" {
				return errors.New("smtp_host is required")
			}
			if n.Email.SMTPPort < 1 || n.Email.SMTPPort > 65535 {
				return fmt.Errorf("smtp_port %d out of range", n.Email.SMTPPort)
			}
			if n.Email.From == "" || len(n.Email.To) == 0 {
				return errors.New("from and at least one to address are required")
			}
			return nil
		}},
		{"desktop", n.Desktop.ChannelSettings, func() error { return nil }},
		{"stream", n.Stream.ChannelSettings, func() error { return checkStreamURL(n.Stream.URL) }},
	}

	for _, ch := range channels {
		for _, trigger := range ch.settings.NotifyOn {
			if !validTrigger(trigger) {
				return fmt.Errorf("notifications.%s: unknown trigger %q", ch.name, trigger)
			}
		}
		if !ch.settings.Enabled {
			continue
		}
		if err := ch.check(); err != nil {
			return fmt.Errorf("notifications.%s: %w", ch.name, err)
		}
	}
	return nil
}

func checkWebhook(raw string) error {
	if raw == "" {
		return errors.New("webhook_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("webhook_url %q is not an http(s) URL", raw)
	}
	return nil
}

func checkStreamURL(raw string) error {
	if raw == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("url %q is not a ws(s) URL", raw)
	}
	return nil
}

func validTrigger(trigger string) bool {
	if trigger == string(notify.TriggerAll) {
		return true
	}
	for _, cat := range diff.Categories() {
		if trigger == string(cat) {
			return true
		}
	}
	return false
}

// NoiseFilters returns the regexes compiled by Validate.
func (c *Config) NoiseFilters() []*regexp.Regexp { return c.Monitoring.noise }

// Classifier builds the priority classifier from the configured rules, or
// the built-in table when none are set.
func (c *Config) Classifier() *diff.Classifier {
	if len(c.Priorities) > 0 {
		return diff.NewClassifier(c.Priorities)
	}
	return diff.NewClassifier(diff.DefaultRules())
}

// Domains returns the target list: the inline domains plus the optional
// domains file, lowercased, first occurrence wins.
func (c *Config) Domains() ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	add := func(raw string) {
		d := strings.ToLower(strings.TrimSpace(raw))
		if d == "" {
			return
		}
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}

	for _, d := range c.Targets.Domains {
		add(d)
	}
	if c.Targets.DomainsFile != "" {
		raw, err := os.ReadFile(c.Targets.DomainsFile)
		if err != nil {
			return nil, fmt.Errorf("read domains file: %w", err)
		}
		for _, line := range strings.Split(string(raw), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			add(line)
		}
	}
	return out, nil
}

// Subscriptions converts the channel settings into router subscriptions,
// in a fixed channel order.
func (n Notifications) Subscriptions() []notify.Subscription {
	sub := func(name string, s ChannelSettings) notify.Subscription {
		triggers := make([]diff.Category, 0, len(s.NotifyOn))
		for _, t := range s.NotifyOn {
			triggers = append(triggers, diff.Category(t))
		}
		return notify.Subscription{Channel: name, Enabled: s.Enabled, Triggers: triggers}
	}
	return []notify.Subscription{
		sub("slack", n.Slack.ChannelSettings),
		sub("discord", n.Discord.ChannelSettings),
		sub("telegram", n.Telegram.ChannelSettings),
		sub("email", n.Email.ChannelSettings),
		sub("desktop", n.Desktop.ChannelSettings),
		sub("stream", n.Stream.ChannelSettings),
	}
}
