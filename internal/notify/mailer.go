package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// ErrRejected marks a message the provider refused for good. Retrying it cannot succeed.
var ErrRejected = errors.New("mail rejected")

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Text    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer sends email through the SendGrid v3 API.
type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgridMailer creates a new SendgridMailer.
func NewSendgridMailer(key, appName, fromEmail string) *SendgridMailer {
	return &SendgridMailer{
		key:        key,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
	}
}

// Send implements Mailer.
func (m *SendgridMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	switch {
	case res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	case res.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("sendgrid: %w: status %d: %s", ErrRejected, res.StatusCode, res.Body)
	}
	return nil
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return v3
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SendGrid key is configured.
type LogMailer struct {
	log zerolog.Logger
}

// NewLogMailer creates a new LogMailer.
func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger.Component(log, "mailer")}
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email not sent, no mail provider configured")
	return nil
}

// PendingQueryMessage composes the email admins receive when a question is forwarded to them.
func PendingQueryMessage(to []string, ev model.ModerationEvent) Message {
	who := ev.UserName
	if who == "" {
		who = fmt.Sprintf("user #%d", ev.UserID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s asked a question that could not be answered automatically.\n\n", who)
	fmt.Fprintf(&sb, "Query #%d:\n%s\n\n", ev.QueryID, ev.QueryText)
	if ev.Reason != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", ev.Reason)
	}
	sb.WriteString("Answer it from the admin dashboard.\n")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("New pending query #%d", ev.QueryID),
		Text:    sb.String(),
	}
}
