package email

import (
	"fmt"
	"net/smtp"

	"github.com/venyaka/Bank-REST/internal/config"
	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendVerificationMail sends the email verification token to a newly
// registered user.
func (s *Sender) SendVerificationMail(user *models.User) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{user.Email}
	e.Subject = "Confirm your email address"

	body := fmt.Sprintf(
		"Dear %s %s,\n\n"+
			"Thank you for registering. Please confirm your email address with the following code:\n\n"+
			"%s\n\n"+
			"If you did not register, ignore this message.\n"+
			"\nBest regards,\nBank Service",
		user.FirstName, user.LastName, user.VerifyToken,
	)
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", user.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", user.Email, e.Subject)
	return nil
}
