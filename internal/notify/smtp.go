package notify

import (
	"context"
	"net"
	"net/smtp"
	"strings"
)

// SMTPMailer sends mail with PLAIN auth over SMTP.
type SMTPMailer struct {
	addr     string
	host     string
	username string
	password string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer builds a mailer for host:port.
func NewSMTPMailer(host, port, username, password string) *SMTPMailer {
	if port == "" {
		port = "587"
	}
	return &SMTPMailer{
		addr:     net.JoinHostPort(host, port),
		host:     host,
		username: username,
		password: password,
		sendMail: smtp.SendMail,
	}
}

func (m *SMTPMailer) Transport() string { return "smtp" }

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	return m.sendMail(m.addr, auth, msg.From, msg.To, buildMIME(msg))
}

func buildMIME(msg Message) []byte {
	var b strings.Builder
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("From: " + msg.From + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
