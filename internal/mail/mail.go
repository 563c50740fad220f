// Package mail sends transactional email. Bodies are templ components
// rendered to HTML; delivery goes through SMTP or, in development, the log.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"
)

// Template names accepted in Message.Template.
const (
	TemplateActivation        = "activation-mail"
	TemplateOrderConfirmation = "order-confirmation"
	TemplateQuestionReply     = "question-reply"
)

// Message is one outbound email. Data must match the template: see
// ActivationData, OrderData and QuestionReplyData.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// Sender delivers a Message. Errors mean the mail was not handed to the
// transport and callers should abort the operation that needed it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Render executes the message template and returns the HTML body.
func Render(ctx context.Context, msg Message) (string, error) {
	component, err := component(msg.Template, msg.Data)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("rendering %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

func component(name string, data any) (templ.Component, error) {
	switch name {
	case TemplateActivation:
		d, ok := data.(ActivationData)
		if !ok {
			return nil, fmt.Errorf("template %s expects ActivationData, got %T", name, data)
		}
		return ActivationMail(d), nil
	case TemplateOrderConfirmation:
		d, ok := data.(OrderData)
		if !ok {
			return nil, fmt.Errorf("template %s expects OrderData, got %T", name, data)
		}
		return OrderConfirmationMail(d), nil
	case TemplateQuestionReply:
		d, ok := data.(QuestionReplyData)
		if !ok {
			return nil, fmt.Errorf("template %s expects QuestionReplyData, got %T", name, data)
		}
		return QuestionReplyMail(d), nil
	default:
		return nil, fmt.Errorf("unknown mail template %q", name)
	}
}

// LogSender renders messages and writes them to the log instead of sending
// them. Used when no SMTP host is configured.
type LogSender struct{}

// NewLogSender creates a LogSender.
func NewLogSender() *LogSender { return &LogSender{} }

// Send renders msg and logs it.
func (LogSender) Send(ctx context.Context, msg Message) error {
	body, err := Render(ctx, msg)
	if err != nil {
		return err
	}
	slog.Info("mail not sent (no SMTP host configured)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("template", msg.Template),
		slog.Int("body_bytes", len(body)),
	)
	slog.Debug("mail body", slog.String("body", body))
	return nil
}
