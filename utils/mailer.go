package utils

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrN7King/BookstorePhase1-sub001/config"
)

// ErrMailNotConfigured is returned when no SMTP host or sender is set.
var ErrMailNotConfigured = errors.New("smtp not configured")

// Mail is a plain text message.
type Mail struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

// MailSender delivers a Mail.
type MailSender interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer sends mail with the SMTP settings it was built from.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	startTLS bool
}

// NewSMTPMailer copies the SMTP settings out of cfg.
func NewSMTPMailer(cfg config.AppConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		startTLS: cfg.SMTPTLS,
	}
}

// Send delivers m. The dial is bounded by 5s and the whole session by the earlier
// of ctx's deadline and 15s. STARTTLS is used when enabled and offered.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if s.host == "" || s.from == "" {
		return ErrMailNotConfigured
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	msg := s.compose(m)

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	deadline := time.Now().Add(15 * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && s.startTLS {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.username != "" {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(s.from); err != nil {
		return err
	}
	if err := c.Rcpt(m.To); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (s *SMTPMailer) compose(m Mail) []byte {
	fromName := s.fromName
	if fromName == "" {
		fromName = "Bookstore"
	}
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), s.from),
		"To":           m.To,
		"Subject":      mime.BEncoding.Encode("UTF-8", m.Subject),
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
		"Date":         time.Now().Format(time.RFC1123Z),
	}
	if m.ReplyTo != "" {
		headers["Reply-To"] = m.ReplyTo
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		msg.WriteString(k + ": " + headers[k] + "\r\n")
	}
	msg.WriteString("\r\n")
	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(msg.String())
}
