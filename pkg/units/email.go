// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
)

// Email sends plain-text mail over SMTP. Without credentials the unit
// degrades.
type Email struct {
	cfg  config.EmailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmail(cfg config.EmailConfig) *Email {
	return &Email{cfg: cfg, send: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Probe() core.Probe {
	if e.cfg.Host == "" || e.cfg.Username == "" || e.cfg.Password == "" {
		return core.MissingDependency("SMTP credentials not set")
	}
	return core.SatisfiedProbe()
}

func (e *Email) Build() ([]core.Operation, error) {
	return []core.Operation{
		{
			Name:        "send_email",
			Description: "Send a plain-text email; empty recipients default to self.",
			InputSchema: map[string]string{"subject": "string", "body": "string", "to": "string (comma-separated, optional)"},
			Handler:     e.sendEmail,
		},
	}, nil
}

func (e *Email) sendEmail(_ context.Context, input map[string]any) (any, error) {
	subject := stringArg(input, "subject")
	body := stringArg(input, "body")
	if body == "" {
		body = stringArg(input, "request")
	}
	if subject == "" || body == "" {
		return nil, fmt.Errorf("subject and body are required")
	}

	recipients := e.recipients(stringArg(input, "to"))
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients specified and no default address configured")
	}

	from := e.cfg.From
	if from == "" {
		from = e.cfg.Username
	}
	msg := []byte(
		"From: " + from + "\r\n" +
			"To: " + strings.Join(recipients, ", ") + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"\r\n" +
			body + "\r\n")

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	if err := e.send(addr, auth, from, recipients, msg); err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}
	return map[string]any{
		"status":     "sent",
		"recipients": recipients,
	}, nil
}

// recipients splits the comma-separated list; an empty list falls back
// to the configured default, then to self.
func (e *Email) recipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 && e.cfg.To != "" {
		out = append(out, e.cfg.To)
	}
	if len(out) == 0 && e.cfg.Username != "" {
		out = append(out, e.cfg.Username)
	}
	return out
}
