package notifications

import (
	"fmt"
	"net/smtp"
)

type EmailSender interface {
	// SendEmail sends an email with the specified subject and body to the given recipient.
	SendEmail(to, subject, body string) error
}

type nopSender struct{}

var NopSender EmailSender = &nopSender{}

func (n *nopSender) SendEmail(to, subject, body string) error {
	return nil
}

var sendMail = smtp.SendMail

// SMTPSender implements EmailSender with PLAIN auth over SMTP
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
	}
}

func (s *SMTPSender) SendEmail(to, subject, body string) error {
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}

	msg := []byte("To: " + to + "\r\n" +
		"From: " + s.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	return sendMail(fmt.Sprintf("%s:%d", s.Host, s.Port), auth, s.From, []string{to}, msg)
}
