// Package email sends transactional mail over SMTP.
// A Sender is built from config in main; the password is never logged.
// Notification sends are best-effort — callers log failures and move on,
// they never fail the primary operation.
package email

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers mail through one SMTP account.
type Sender struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// NewSender builds a Sender. Port defaults to 465; From defaults to User.
func NewSender(host, port, user, password, from string) *Sender {
	if port == "" {
		port = "465"
	}
	if from == "" {
		from = user
	}
	return &Sender{Host: host, Port: port, User: user, Password: password, From: from}
}

// SendWatchlistEmail notifies the user that a title was added to their
// watchlist. posterURL may be empty, in which case no image is embedded.
func (s *Sender) SendWatchlistEmail(toEmail, userName, title, posterURL string) error {
	subject := fmt.Sprintf("%s added to your watchlist", title)

	var poster string
	if posterURL != "" {
		poster = fmt.Sprintf(`<img src=%q alt=%q style="max-width: 200px; border-radius: 8px;">`, posterURL, title)
	}
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Hi %s!</h2>
  <p>You've successfully added <strong>%s</strong> to your watchlist.</p>
  %s
  <p>You can view your complete watchlist anytime by visiting your dashboard.</p>
  <p>Happy watching!</p>
</div>`, userName, title, poster)

	return s.send(toEmail, subject, body)
}

// send delivers one HTML message. Port 465 uses implicit TLS; any other
// port goes through smtp.SendMail's STARTTLS path.
func (s *Sender) send(toEmail, subject, htmlBody string) error {
	if s.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	msg := buildMessage(s.From, toEmail, subject, htmlBody)
	addr := net.JoinHostPort(s.Host, s.Port)
	auth := smtp.PlainAuth("", s.User, s.Password, s.Host)

	if s.Port != "465" {
		if err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, msg); err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.Host})
	if err != nil {
		return fmt.Errorf("smtp tls dial: %w", err)
	}
	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := c.Mail(s.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(toEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write(msg); err != nil {
		wc.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

// buildMessage assembles an RFC-5322 HTML message.
func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return []byte(b.String())
}
