package notify

import (
	"context"
	"net/http"
	"strings"

	"github.com/driftsec/driftwatch/internal/diff"
)

// SlackTransport posts payloads to a Slack incoming webhook as a single
// colored attachment.
type SlackTransport struct {
	WebhookURL string
	Client     *http.Client
}

func (s *SlackTransport) Name() string { return "slack" }

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (s *SlackTransport) Send(ctx context.Context, p Payload) error {
	msg := slackMessage{
		Text: p.Title,
		Attachments: []slackAttachment{{
			Color: slackColor(p.Priority),
			Title: p.Title,
			Text:  strings.Join(p.Lines(), "\n"),
		}},
	}
	return postJSON(ctx, s.Client, s.WebhookURL, msg)
}

func slackColor(p diff.Priority) string {
	switch p {
	case diff.PriorityCritical, diff.PriorityHigh:
		return "danger"
	case diff.PriorityMedium:
		return "warning"
	default:
		return "good"
	}
}
