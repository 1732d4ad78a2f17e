package mail

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/getyoursite/getyoursite/internal/pkg/contact"
	"github.com/getyoursite/getyoursite/internal/pkg/env"
)

// PlaceholderUser is the sample address shipped in .env.example.
const PlaceholderUser = "votre-email@gmail.com"

// Notifier delivers a contact submission. Send reports delivery success and
// never fails the caller.
type Notifier interface {
	Send(ctx context.Context, sub contact.Submission) bool
}

type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Recipient string
}

// ConfigFromEnv reads the GMAIL_* and SMTP_* keys.
func ConfigFromEnv() Config {
	return Config{
		Host:      env.GetEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:      env.GetEnv("SMTP_PORT", "587"),
		User:      env.GetEnv("GMAIL_USER", ""),
		Password:  env.GetEnv("GMAIL_APP_PASSWORD", ""),
		Recipient: env.GetEnv("GMAIL_RECIPIENT", ""),
	}
}

var validate = validator.New()

// Enabled is true only for plausible, non-placeholder credentials.
func (c Config) Enabled() bool {
	user := strings.TrimSpace(c.User)
	if user == "" || strings.TrimSpace(c.Password) == "" {
		return false
	}
	if strings.EqualFold(user, PlaceholderUser) {
		return false
	}
	return validate.Var(user, "email") == nil
}

func (c Config) recipient() string {
	if r := strings.TrimSpace(c.Recipient); r != "" {
		return r
	}
	return strings.TrimSpace(c.User)
}

type SMTPNotifier struct {
	cfg    Config
	mailer *Mailer
	now    func() time.Time
}

func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:    cfg,
		mailer: NewMailer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		now:    time.Now,
	}
}

func (n *SMTPNotifier) Enabled() bool {
	return n.cfg.Enabled()
}

func (n *SMTPNotifier) Send(ctx context.Context, sub contact.Submission) bool {
	if !n.Enabled() {
		log.Infow("[Mail] delivery disabled, submission only logged", "subject", sub.Subject)
		return false
	}
	if err := ctx.Err(); err != nil {
		log.Warnw("[Mail] context done before delivery", "error", err)
		return false
	}

	msg, err := n.compose(sub)
	if err != nil {
		log.Errorw("[Mail] failed to compose message", "error", err)
		return false
	}

	if err := n.mailer.Deliver(n.cfg.User, []string{n.cfg.recipient()}, msg); err != nil {
		log.Errorw("[Mail] delivery failed", "error", err)
		return false
	}
	return true
}

func (n *SMTPNotifier) compose(sub contact.Submission) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	text := fmt.Sprintf("Nom: %s\nEmail: %s\n\nMessage:\n%s\n", sub.Name, sub.Email, sub.Message)
	htmlBody := fmt.Sprintf(
		"<h3>Nouveau message de GetYourSite</h3>\n<p><strong>Nom:</strong> %s</p>\n<p><strong>Email:</strong> %s</p>\n<p><strong>Message:</strong></p>\n<p>%s</p>\n",
		html.EscapeString(sub.Name),
		html.EscapeString(sub.Email),
		strings.ReplaceAll(html.EscapeString(sub.Message), "\n", "<br>"),
	)

	for _, part := range []struct{ ctype, content string }{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", htmlBody},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.ctype},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", mime.QEncoding.Encode("utf-8", "GetYourSite")+" <"+n.cfg.User+">")
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.recipient())
	fmt.Fprintf(&msg, "Reply-To: %s\r\n", sub.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", sub.Subject))
	fmt.Fprintf(&msg, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}
