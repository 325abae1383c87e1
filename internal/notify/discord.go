package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/driftsec/driftwatch/internal/diff"
)

// discordColors maps priority tiers onto embed sidebar colors: red,
// orange, yellow, green.
var discordColors = map[diff.Priority]int{
	diff.PriorityCritical: 15158332,
	diff.PriorityHigh:     15105570,
	diff.PriorityMedium:   16776960,
	diff.PriorityLow:      3066993,
}

// Embed descriptions cap at 4096 characters, so long change lists get
// truncated with a trailing count.
const discordMaxLines = 25

// DiscordTransport posts payloads to a Discord webhook as one embed.
type DiscordTransport struct {
	WebhookURL string
	Client     *http.Client
}

func (d *DiscordTransport) Name() string { return "discord" }

type discordMessage struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func (d *DiscordTransport) Send(ctx context.Context, p Payload) error {
	lines := p.Lines()
	if len(lines) > discordMaxLines {
		extra := len(lines) - discordMaxLines
		lines = append(lines[:discordMaxLines], fmt.Sprintf("and %d more", extra))
	}
	msg := discordMessage{Embeds: []discordEmbed{{
		Title:       p.Title,
		Description: strings.Join(lines, "\n"),
		Color:       discordColors[p.Priority],
	}}}
	return postJSON(ctx, d.Client, d.WebhookURL, msg)
}
