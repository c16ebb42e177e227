// Package mail delivers account notifications. Messages are queued to a
// Postman and sent by a single background worker, so request handlers
// never wait on the mail relay.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/skeleton/internal/logging"
)

// Message is a single HTML mail. Template names the kind of message for
// logs and metrics.
type Message struct {
	To       string
	Title    string
	Content  string
	Template string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// smtpSendMail is a seam for tests.
var smtpSendMail = smtp.SendMail

// SMTPSender relays mail through an SMTP server with PLAIN auth. The
// credential doubles as the From address.
type SMTPSender struct {
	addr       string
	host       string
	credential string
	password   string
}

// NewSMTPSender parses rawURL ("smtp://host:port" or "host:port").
func NewSMTPSender(rawURL, credential, password string) (*SMTPSender, error) {
	hostport := rawURL
	if strings.Contains(rawURL, "://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp url: %w", err)
		}
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, "25"
	}
	if host == "" {
		return nil, fmt.Errorf("invalid smtp url %q: missing host", rawURL)
	}

	return &SMTPSender{
		addr:       net.JoinHostPort(host, port),
		host:       host,
		credential: credential,
		password:   password,
	}, nil
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	var auth smtp.Auth
	if s.credential != "" {
		auth = smtp.PlainAuth("", s.credential, s.password, s.host)
	}

	if err := smtpSendMail(s.addr, auth, s.credential, []string{msg.To}, compose(s.credential, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func compose(from string, msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Title))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Content)
	return b.Bytes()
}

// LogSender writes messages to the log instead of sending them. Used when
// no SMTP relay is configured.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info(ctx, "mail not sent, no smtp relay configured",
		"to", msg.To, "title", msg.Title, "template", msg.Template)
	return nil
}

// NewSender picks SMTP delivery when smtpURL is set and a LogSender
// otherwise.
func NewSender(smtpURL, credential, password string, log logging.Logger) (Sender, error) {
	if smtpURL == "" {
		return NewLogSender(log), nil
	}
	s, err := NewSMTPSender(smtpURL, credential, password)
	if err != nil {
		return nil, err
	}
	return s, nil
}
