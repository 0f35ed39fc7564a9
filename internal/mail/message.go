// Package mail delivers outgoing mail over SMTP.
//
// Registration never waits on delivery: messages are handed to a
// Dispatcher which sends them from a background goroutine through a
// circuit breaker. Failures are logged and counted, never returned to the
// HTTP caller.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net/textproto"
	"time"
)

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a mail with a plain text and an HTML alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// PasswordMessage builds the mail that carries a newly generated password.
func PasswordMessage(to, password string) Message {
	return Message{
		To:      to,
		Subject: "This is your password",
		Text:    "Your password is below",
		HTML:    "<b>" + html.EscapeString(password) + "</b>",
	}
}

// Bytes renders msg as an RFC 5322 message with a multipart/alternative body.
func (m Message) Bytes(from string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		ctype, content string
	}{
		{"text/plain; charset=UTF-8", m.Text},
		{"text/html; charset=UTF-8", m.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", m.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&out, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
