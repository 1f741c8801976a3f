package mailer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// DefaultSMTPTimeout bounds an SMTP session when none is configured.
const DefaultSMTPTimeout = 20 * time.Second

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
	Timeout  time.Duration
}

// SMTP submits messages to a mail server with authentication.
type SMTP struct {
	opts SMTPOptions
}

func NewSMTP(opts SMTPOptions) *SMTP {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSMTPTimeout
	}
	if opts.Port == 0 {
		opts.Port = 587
	}
	return &SMTP{opts: opts}
}

// Send satisfies ports.Mailer.
func (s *SMTP) Send(ctx context.Context, m domain.Message) error {
	msg, err := s.build(m)
	if err != nil {
		return fmt.Errorf("%w: build message: %w", domain.ErrTransport, err)
	}

	client, err := mail.NewClient(s.opts.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("%w: smtp client: %w", domain.ErrTransport, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp send: %w", domain.ErrTransport, err)
	}
	return nil
}

func (s *SMTP) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.opts.Port),
		mail.WithTimeout(s.opts.Timeout),
	}
	if s.opts.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if s.opts.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.opts.Username),
			mail.WithPassword(s.opts.Password),
		)
	}
	return opts
}

// build assembles a multipart message: plain text with an HTML alternative
// and one part per attachment.
func (s *SMTP) build(m domain.Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.opts.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	for _, a := range m.Attachments {
		err := msg.AttachReader(a.Filename, bytes.NewReader(a.Content),
			mail.WithFileContentType(mail.ContentType(a.MIMEType)))
		if err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.Filename, err)
		}
	}
	return msg, nil
}
