package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email sends notifications through an SMTP relay with PLAIN auth.
type Email struct {
	Addr string
	From string
	To   []string

	auth     smtp.Auth
	sendMail sendMailFunc
	now      func() time.Time
}

// NewEmail builds an SMTP notifier. to may hold several comma-separated
// addresses. Without a username the relay is used unauthenticated.
func NewEmail(addr, from, to, username, password string) (*Email, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("email: invalid SMTP address %q: %w", addr, err)
	}
	var recipients []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	if from == "" || len(recipients) == 0 {
		return nil, fmt.Errorf("email: sender and recipient are required")
	}

	e := &Email{
		Addr:     addr,
		From:     from,
		To:       recipients,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
	if username != "" {
		e.auth = smtp.PlainAuth("", username, password, host)
	}
	return e, nil
}

func (e *Email) Name() string { return "email" }

func (e *Email) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := e.message(n)
	if err != nil {
		return err
	}
	if err := e.sendMail(e.Addr, e.auth, e.From, e.To, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (e *Email) message(n Notification) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", e.From)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(e.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", n.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", e.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(n.Body)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return buf.Bytes(), nil
}
