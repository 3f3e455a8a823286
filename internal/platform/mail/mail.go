// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mail renders transactional messages and hands them to a transport.

Two transports are available:

  - [LogSender]: writes the rendered message to the structured log (development)
  - [AMQPSender]: publishes the message to a durable RabbitMQ queue consumed by
    the delivery worker, waiting for the broker's publisher confirm
*/
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
)

// Template names.
const (
	TemplateWelcome       = "welcome"
	TemplatePasswordReset = "passwordReset"
)

// Subjects for the built-in templates.
const (
	SubjectWelcome       = "Welcome to the Trailhead family!"
	SubjectPasswordReset = "Your password reset token (valid for only 10 min)"
)

// Message is one outbound email.
type Message struct {
	To       string            `json:"to"`
	Name     string            `json:"name"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// Welcome builds the greeting sent after signup. url points at the account page.
func Welcome(to, name, url string) Message {
	return Message{
		To:       to,
		Name:     name,
		Subject:  SubjectWelcome,
		Template: TemplateWelcome,
		Data:     map[string]string{"url": url},
	}
}

// PasswordReset builds the reset mail carrying the one-time reset url.
func PasswordReset(to, name, url string) Message {
	return Message{
		To:       to,
		Name:     name,
		Subject:  SubjectPasswordReset,
		Template: TemplatePasswordReset,
		Data:     map[string]string{"url": url},
	}
}

// FirstName returns the first word of the recipient's name.
func (message Message) FirstName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(message.Name), " ")
	return first
}

// # Rendering

var templates = func() *template.Template {
	root := template.New("mail")

	template.Must(root.New(TemplateWelcome).Parse(`Hi {{.FirstName}},

Welcome to Trailhead, we're glad to have you!
Upload a profile photo and start exploring: {{index .Data "url"}}
`))

	template.Must(root.New(TemplatePasswordReset).Parse(`Hi {{.FirstName}},

Forgot your password? Submit a PATCH request with your new password and passwordConfirm to:
{{index .Data "url"}}

If you didn't forget your password, please ignore this email.
`))

	return root
}()

// Render produces the plain-text body of message.
func Render(message Message) (string, error) {
	tmpl := templates.Lookup(message.Template)
	if tmpl == nil {
		return "", fmt.Errorf("mail: unknown template %q", message.Template)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, message); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", message.Template, err)
	}
	return body.String(), nil
}

// # Log Transport

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
	from   string
}

// NewLogSender creates a log transport. A nil logger uses [slog.Default].
func NewLogSender(logger *slog.Logger, from string) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, from: from}
}

// Send implements [Sender].
func (sender *LogSender) Send(ctx context.Context, message Message) error {
	body, err := Render(message)
	if err != nil {
		return err
	}

	sender.logger.InfoContext(ctx, "mail_sent",
		slog.String("transport", "log"),
		slog.String("from", sender.from),
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("template", message.Template),
		slog.String("body", body),
	)
	return nil
}
