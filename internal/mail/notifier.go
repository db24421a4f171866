package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/drilldown/backend/internal/config"
	"github.com/drilldown/backend/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// lines escapes s and keeps its line breaks in HTML output.
func lines(s string) htmltemplate.HTML {
	escaped := htmltemplate.HTMLEscapeString(s)
	return htmltemplate.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

var (
	textTemplates = texttemplate.Must(texttemplate.New("text").
			Funcs(texttemplate.FuncMap{"deref": deref}).
			ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.New("html").
			Funcs(htmltemplate.FuncMap{"deref": deref, "lines": lines}).
			ParseFS(templateFS, "templates/*.html.tmpl"))
)

type templateData struct {
	Brand      config.BrandConfig
	Submission *model.Submission
	Response   string
	Year       int
}

// Notifier renders and sends the two kinds of mail the service produces:
// the reply to a visitor and the new-submission alert to the sales inbox.
type Notifier struct {
	sender     Sender
	brand      config.BrandConfig
	salesInbox string
	timeout    time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotifier creates a Notifier. A zero timeout leaves the caller's deadline
// as the only bound on a send.
func NewNotifier(sender Sender, brand config.BrandConfig, salesInbox string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:     sender,
		brand:      brand,
		salesInbox: salesInbox,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// SendResponse emails responseText to the submitter of sub.
func (n *Notifier) SendResponse(ctx context.Context, sub *model.Submission, responseText string) error {
	data := templateData{Brand: n.brand, Submission: sub, Response: responseText, Year: n.now().Year()}
	msg, err := n.render(sub.Email, "Re: Your Inquiry - "+n.brand.Name, "response", data)
	if err != nil {
		return err
	}
	return n.send(ctx, "response", sub.ID, msg)
}

// SendContactNotification alerts the sales inbox about a new submission.
func (n *Notifier) SendContactNotification(ctx context.Context, sub *model.Submission) error {
	if n.salesInbox == "" {
		return ErrNotConfigured
	}
	data := templateData{Brand: n.brand, Submission: sub, Year: n.now().Year()}
	msg, err := n.render(n.salesInbox, "New Contact Form Submission - "+n.brand.Name, "contact_notification", data)
	if err != nil {
		return err
	}
	return n.send(ctx, "contact_notification", sub.ID, msg)
}

func (n *Notifier) render(to, subject, name string, data templateData) (*Message, error) {
	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return nil, fmt.Errorf("mail: render %s text: %w", name, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return nil, fmt.Errorf("mail: render %s html: %w", name, err)
	}
	return &Message{To: to, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func (n *Notifier) send(ctx context.Context, kind, submissionID string, msg *Message) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	err := n.sender.Send(ctx, msg)
	switch {
	case err == nil:
		n.logger.Info("email sent", "kind", kind, "submission_id", submissionID)
	case errors.Is(err, ErrNotConfigured):
		n.logger.Warn("smtp not configured, email not sent", "kind", kind, "submission_id", submissionID)
		n.logger.Debug("unsent email", "kind", kind, "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	default:
		n.logger.Error("email delivery failed", "kind", kind, "submission_id", submissionID, "error", err)
	}
	return err
}
