// Package mail delivers the portal's transactional email over SMTP.
// Sends are bounded by a timeout and report failure as a return value;
// they can never take down the workflow operation that triggered them.
package mail

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/lmoretti/birchside/internal/workflow"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer implements workflow.Mailer over gomail.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *SMTPMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		timeout: timeout,
		log:     log,
	}
}

// SendWelcome sends the one-time welcome email.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name string) error {
	html, text, err := renderWelcome(name)
	if err != nil {
		return fmt.Errorf("render welcome email: %w", err)
	}
	return m.send(ctx, to, "Welcome to Birchside Neighbors", html, text)
}

// SendRequestReply notifies a request author that staff responded.
func (m *SMTPMailer) SendRequestReply(ctx context.Context, to string, n workflow.ReplyNotification) error {
	html, text, err := renderRequestReply(n)
	if err != nil {
		return fmt.Errorf("render reply email: %w", err)
	}
	subject := "New reply to your request: " + n.RequestTitle
	return m.send(ctx, to, subject, html, text)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, html, text string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// gomail has no context support; bound the dial-and-send ourselves.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(msg) }()

	select {
	case err := <-done:
		if err != nil {
			return &workflow.DependencyFailure{Op: "smtp send", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &workflow.DependencyFailure{Op: "smtp send", Err: ctx.Err()}
	}
}
