package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// EmailTransport sends one plain-text message per payload over SMTP.
type EmailTransport struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

func (e *EmailTransport) Name() string { return "email" }

// Send delivers the payload by mail. net/smtp carries no context support,
// so the dispatcher's per-send timeout cannot cut a hung SMTP session
// short.
func (e *EmailTransport) Send(_ context.Context, p Payload) error {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	var auth smtp.Auth
	if e.Username != "" {
		auth = smtp.PlainAuth("", e.Username, e.Password, e.Host)
	}
	return smtp.SendMail(addr, auth, e.From, e.To, buildEmail(e.From, e.To, p))
}

func buildEmail(from string, to []string, p Payload) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: [%s] %s\r\n", strings.ToUpper(string(p.Priority)), p.Title)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	for _, line := range p.Lines() {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return []byte(b.String())
}
