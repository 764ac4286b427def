package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of sending them. Used in
// development.
type LogMailer struct {
	From string
}

// Send implements Mailer.
func (l LogMailer) Send(_ context.Context, m Message) error {
	if m.To == "" {
		return errors.New("email: empty recipient")
	}
	log.Info().
		Str("component", "mailer").
		Str("from", l.From).
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("html_bytes", len(m.HTML)).
		Msg("email (log only)")
	log.Debug().Str("component", "mailer").Str("to", m.To).Msg(m.Text)
	return nil
}

// Outbox records messages in memory.
type Outbox struct {
	mu   sync.Mutex
	msgs []Message
}

// Send implements Mailer.
func (o *Outbox) Send(_ context.Context, m Message) error {
	if m.To == "" {
		return errors.New("email: empty recipient")
	}
	o.mu.Lock()
	o.msgs = append(o.msgs, m)
	o.mu.Unlock()
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.msgs...)
}

// SMTPMailer sends multipart/alternative messages over SMTP with PLAIN auth.
type SMTPMailer struct {
	Addr     string // host:port
	Username string
	Password string
	From     string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns a mailer for addr.
func NewSMTPMailer(addr, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{Addr: addr, Username: user, Password: pass, From: from, send: smtp.SendMail}
}

// Send implements Mailer.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return errors.New("email: empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := BuildMIME(s.From, m, time.Now())
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if s.Username != "" {
		host := s.Addr
		if i := strings.LastIndex(host, ":"); i > 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	if err := s.send(s.Addr, auth, s.From, []string{m.To}, body); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// BuildMIME encodes m as a multipart/alternative message with text and HTML
// parts.
func BuildMIME(from string, m Message, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := []string{
		"From: " + from,
		"To: " + m.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", m.Subject),
		"Date: " + now.Format(time.RFC1123Z),
		"Message-ID: <" + uuid.NewString() + "@nabostylisten>",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=" + mw.Boundary(),
	}
	var out bytes.Buffer
	out.WriteString(strings.Join(hdr, "\r\n"))
	out.WriteString("\r\n\r\n")

	parts := []struct {
		ctype string
		body  string
	}{
		{"text/plain; charset=utf-8", m.Text},
		{"text/html; charset=utf-8", m.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.ctype},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	out.Write(buf.Bytes())
	return out.Bytes(), nil
}
