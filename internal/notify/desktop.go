package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/driftsec/driftwatch/internal/diff"
)

// DesktopTransport raises native OS notifications. Critical and high
// payloads use the alerting variant so they also make a sound.
type DesktopTransport struct{}

func (DesktopTransport) Name() string { return "desktop" }

func (DesktopTransport) Send(_ context.Context, p Payload) error {
	body := p.Title
	if lines := p.Lines(); len(lines) > 0 {
		if len(lines) > 3 {
			lines = append(lines[:3], fmt.Sprintf("and %d more", len(lines)-3))
		}
		body = strings.Join(lines, "\n")
	}
	title := "driftwatch: " + p.Title
	if p.Priority == diff.PriorityCritical || p.Priority == diff.PriorityHigh {
		return beeep.Alert(title, body, "")
	}
	return beeep.Notify(title, body, "")
}
