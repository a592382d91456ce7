// Package notify emails a summary of a batch run.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("icreports.lib.notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

// Line is the result of a single report in a summary.
type Line struct {
	Report string
	Status string
	Detail string
}

type Summary struct {
	RunID   string
	Elapsed string
	Lines   []Line
}

func (s Summary) failed() int {
	n := 0
	for _, l := range s.Lines {
		if l.Status != "normalized" {
			n++
		}
	}
	return n
}

// Subject is the subject line of the summary email.
func (s Summary) Subject() string {
	failed := s.failed()
	if failed == 0 {
		return fmt.Sprintf("icreports %s: all %d reports normalized", s.RunID, len(s.Lines))
	}
	return fmt.Sprintf("icreports %s: %d of %d reports failed", s.RunID, failed, len(s.Lines))
}

// Body is the plain text body of the summary email.
func (s Summary) Body() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s finished in %s.\n\n", s.RunID, s.Elapsed)
	for _, l := range s.Lines {
		fmt.Fprintf(&sb, "%-24s %-12s %s\n", l.Report, l.Status, l.Detail)
	}
	return sb.String()
}

type Mailer struct {
	config SmtpConfig
}

func NewMailer(config SmtpConfig) Mailer {
	return Mailer{config: config}
}

func (m Mailer) Send(ctx context.Context, summary Summary) error {
	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("IC Reports <%s>", m.config.EmailAddress)
	mail.To = m.config.To
	mail.Subject = summary.Subject()
	mail.Text = []byte(summary.Body())

	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
