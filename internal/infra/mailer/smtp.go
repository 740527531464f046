package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPClient implements mail.Client over plain SMTP.
type SMTPClient struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTPClient(host string, port int, username, password, sender string) *SMTPClient {
	return &SMTPClient{
		dialer: &gomail.Dialer{Host: host, Port: port, Username: username, Password: password},
		sender: sender,
	}
}

func (c *SMTPClient) Send(recipient, subject, plainBody, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.sender)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := c.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", recipient, err)
	}
	return nil
}
