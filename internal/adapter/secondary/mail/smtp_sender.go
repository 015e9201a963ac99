package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/stayflow/booking-payments/internal/port/output"
)

// SMTPSender is a secondary adapter that implements the MailSender
// output port over plain SMTP.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates a new SMTP sender. addr is host:port.
func NewSMTPSender(addr, from string) output.MailSender {
	return &SMTPSender{addr: addr, from: from}
}

// Send delivers a plain-text message to a single recipient
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
