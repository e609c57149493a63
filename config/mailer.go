package config

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends HTML mail over SMTP with mandatory STARTTLS.
type Mailer struct {
	host          string
	port          int
	user          string
	pass          string
	from          string
	skipTLSVerify bool
}

func NewMailer(c *Config) *Mailer {
	port := c.SMTPPort
	if port == 0 {
		port = 587
	}
	return &Mailer{
		host:          c.SMTPHost,
		port:          port,
		user:          c.SMTPUser,
		pass:          c.SMTPPass,
		from:          c.SMTPFrom, // e.g. "Journal Office <no-reply@journal.org>"
		skipTLSVerify: c.SMTPSkipTLSVerify,
	}
}

// Configured reports whether SMTP host and sender are set.
func (m *Mailer) Configured() bool {
	return m.host != "" && m.from != ""
}

func (m *Mailer) SendMail(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if !m.Configured() {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	// ServerName must match the SMTP hostname.
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,
		InsecureSkipVerify: m.skipTLSVerify,
	}

	return d.DialAndSend(msg)
}
