package mailer

import (
	"errors"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

type SMTPClient struct {
	fromEmail string
	dialer    *gomail.Dialer
	backoff   time.Duration
}

func NewSMTPClient(cfg SMTPConfig) (*SMTPClient, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("from email is required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.Timeout = 10 * time.Second
	return &SMTPClient{fromEmail: cfg.FromEmail, dialer: d, backoff: time.Second}, nil
}

func (c *SMTPClient) message(templateFile, username, email string, data any) (*gomail.Message, error) {
	r, err := render(templateFile, data)
	if err != nil {
		return nil, err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", c.fromEmail, FromName)
	m.SetAddressHeader("To", email, username)
	m.SetHeader("Subject", r.subject)
	m.SetBody("text/plain", r.plain)
	m.AddAlternative("text/html", r.html)
	return m, nil
}

// Send renders the template and delivers it, retrying with linear backoff.
// The returned int mirrors an HTTP status for callers that log it.
func (c *SMTPClient) Send(templateFile, username, email string, data any) (int, error) {
	m, err := c.message(templateFile, username, email, data)
	if err != nil {
		return -1, err
	}

	var lastErr error
	for i := 0; i < maxRetires; i++ {
		if lastErr = c.dialer.DialAndSend(m); lastErr == nil {
			return 200, nil
		}
		time.Sleep(c.backoff * time.Duration(i+1))
	}
	return -1, fmt.Errorf("failed to send email after %d attempts, error: %v", maxRetires, lastErr)
}
