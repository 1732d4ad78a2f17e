package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers raw RFC 5322 messages over SMTP.
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string

	send sendFunc
}

func NewMailer(host, port, username, password string) *Mailer {
	return &Mailer{Host: host, Port: port, Username: username, Password: password, send: smtp.SendMail}
}

func (m *Mailer) Addr() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

// Deliver sends msg from sender to the recipients.
func (m *Mailer) Deliver(sender string, to []string, msg []byte) error {
	var auth smtp.Auth
	if m.Username != "" && m.Password != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}

	if err := send(m.Addr(), auth, sender, to, msg); err != nil {
		return fmt.Errorf("smtp send via %s: %w", m.Addr(), err)
	}
	log.Infow("[Mail] message sent", "to", to, "addr", m.Addr())
	return nil
}
