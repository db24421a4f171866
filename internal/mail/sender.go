// Package mail delivers best-effort notification email over SMTP.
//
// Delivery never fails the caller's operation: missing configuration is
// reported as ErrNotConfigured and transport failures as *DeliveryError, and
// callers record the outcome instead of propagating it.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/drilldown/backend/internal/config"
	gomail "github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned when SMTP host or credentials are missing.
var ErrNotConfigured = errors.New("mail: not configured")

// DeliveryError reports a failed send to a specific recipient.
type DeliveryError struct {
	To  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mail: delivery to %s failed: %v", e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Message is a multipart message with a plain-text and an HTML body.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender transmits a single message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPSender sends mail through an SMTP relay using STARTTLS and PLAIN auth.
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender creates an SMTPSender. An incomplete configuration is
// accepted; Send then returns ErrNotConfigured.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

var _ Sender = (*SMTPSender)(nil)

// Configured reports whether Send can reach a relay.
func (s *SMTPSender) Configured() bool {
	return s.cfg.Configured()
}

// Send dials the relay, delivers msg and closes the connection.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("mail: invalid sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}

	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(s.cfg.Timeout()),
	)
	if err != nil {
		return fmt.Errorf("mail: create client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return &DeliveryError{To: msg.To, Err: err}
	}
	return nil
}
