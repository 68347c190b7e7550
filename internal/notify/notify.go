// Package notify sends goal notifications by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/jordan-wright/email"

	"finpilot/internal/core"
	"finpilot/internal/log"
)

// Notifier tells someone that a goal was reached.
type Notifier interface {
	GoalReached(ctx context.Context, p core.GoalProgress) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To receives every notification; users carry no email address.
	To []string
}

func (c SMTPConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Mailer delivers notifications over SMTP.
type Mailer struct {
	cfg    SMTPConfig
	logger *log.Logger
	send   func(e *email.Email, addr string, a smtp.Auth) error
}

func NewMailer(cfg SMTPConfig, logger *log.Logger) (*Mailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("missing SMTP host")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("missing notification recipients")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentNotify),
		send:   func(e *email.Email, addr string, a smtp.Auth) error { return e.Send(addr, a) },
	}, nil
}

// GoalMessage builds the notification for p.
func GoalMessage(from string, to []string, p core.GoalProgress) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = append([]string(nil), to...)

	title := p.Goal.Title
	if title == "" {
		title = fmt.Sprintf("%d savings goal", p.Goal.Year)
	}
	e.Subject = fmt.Sprintf("Goal reached: %s", title)

	var b strings.Builder
	fmt.Fprintf(&b, "User %s reached the %d goal %q.\n\n", p.Goal.UserID, p.Goal.Year, title)
	fmt.Fprintf(&b, "Goal:         %s\n", p.Goal.Amount)
	fmt.Fprintf(&b, "Balance:      %s\n", p.Balance)
	fmt.Fprintf(&b, "Income:       %s\n", p.Income)
	fmt.Fprintf(&b, "Expense:      %s\n", p.Expense)
	fmt.Fprintf(&b, "Savings rate: %d%%\n", p.SavingsRate)
	b.WriteString("\nfinpilot")
	e.Text = []byte(b.String())
	return e
}

func (m *Mailer) GoalReached(ctx context.Context, p core.GoalProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := GoalMessage(m.cfg.From, m.cfg.To, p)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(e, m.cfg.addr(), auth); err != nil {
		m.logger.ErrorContext(ctx, "Failed to send goal email",
			log.FieldUserID, p.Goal.UserID, log.FieldError, err)
		return fmt.Errorf("send goal email: %w", err)
	}
	m.logger.InfoContext(ctx, "Goal email sent",
		log.FieldUserID, p.Goal.UserID, log.FieldYear, p.Goal.Year, "subject", e.Subject)
	return nil
}

// Recorder keeps notifications in memory. It stands in for SMTP when no
// mail server is configured.
type Recorder struct {
	mu   sync.Mutex
	sent []core.GoalProgress
}

func (r *Recorder) GoalReached(_ context.Context, p core.GoalProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, p)
	return nil
}

func (r *Recorder) Sent() []core.GoalProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.GoalProgress(nil), r.sent...)
}
