package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/marcos-wesley/ComunidadeANETI-sub000/internal/config"
)

// Sender delivers notification emails over SMTP. Used for membership
// application outcomes, where members expect a copy outside the app.
type Sender struct {
	cfg *config.SMTPConfig
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Configured reports whether SMTP credentials are present.
func (s *Sender) Configured() bool {
	return s.cfg.Username != "" && s.cfg.Password != ""
}

// SendNotification sends one plain-text notification email.
func (s *Sender) SendNotification(ctx context.Context, to, title, message string) error {
	if !s.Configured() {
		return fmt.Errorf("email: SMTP is not configured")
	}
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	var buf bytes.Buffer
	buf.WriteString("From: " + s.cfg.FromName + " <" + from + ">\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + title + "\r\n")
	buf.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(message)
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, from, []string{to}, buf.Bytes()) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
