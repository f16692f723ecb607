package service

import (
	"context"
	"fmt"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/token"
	"github.com/venyaka/Bank-REST/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const verifyTokenLength = 50

// MailSender delivers the email verification message. Mail delivery is an
// external collaborator; only the send call lives behind this interface.
type MailSender interface {
	SendVerificationMail(user *models.User) error
}

// SessionRecorder persists a login audit record.
type SessionRecorder interface {
	RecordLogin(ctx context.Context, userID int64, ip, userAgent string)
}

// AuthService handles registration, login, verification and logout.
type AuthService struct {
	users    UserStore
	tokens   *token.Manager
	mail     MailSender
	sessions SessionRecorder
	log      *logrus.Logger
}

// NewAuthService initializes a new auth service
func NewAuthService(users UserStore, tokens *token.Manager, mail MailSender, sessions SessionRecorder, log *logrus.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, mail: mail, sessions: sessions, log: log}
}

// Register creates a new user with a hashed password and sends the email
// verification token.
func (s *AuthService) Register(ctx context.Context, firstName, lastName, email, password string) (*models.User, error) {
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, models.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verifyToken, err := utils.RandomAlphanumeric(verifyTokenLength)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		VerifyToken:  verifyToken,
		Roles:        models.NewRoleSet(models.RoleUser),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.mail.SendVerificationMail(user); err != nil {
		s.log.Errorf("Failed to send verification mail to %s: %v", user.Email, err)
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and grants a fresh token pair, rotating the
// stored sequence so any earlier refresh token becomes unusable.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*models.User, *token.Pair, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, models.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, nil, models.ErrUserNotVerified
	}

	pair, err := s.tokens.Grant(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	s.sessions.RecordLogin(ctx, user.ID, ip, userAgent)

	s.log.Infof("User logged in: %s", user.Email)
	return user, pair, nil
}

// VerifyEmail confirms the one-shot verification token and marks the user
// verified.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return models.ErrAlreadyVerified
	}
	if user.VerifyToken == "" || user.VerifyToken != code {
		return models.ErrBadVerificationCode
	}

	user.VerifyToken = ""
	user.EmailVerified = true
	if err := s.users.SaveUser(ctx, user); err != nil {
		return err
	}

	s.log.Infof("User verified: %s", user.Email)
	return nil
}

// ResendVerification sends a fresh copy of the verification mail.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.EmailVerified {
		return models.ErrAlreadyVerified
	}
	return s.mail.SendVerificationMail(user)
}

// Logout clears the stored rotation sequence, invalidating every
// outstanding refresh token for the user.
func (s *AuthService) Logout(ctx context.Context, email string) error {
	if err := s.tokens.Revoke(ctx, email); err != nil {
		return err
	}
	s.log.Infof("User logged out: %s", email)
	return nil
}
