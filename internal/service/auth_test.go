package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/token"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// The remaining token.IdentityStore methods, so fakeUserStore can back a
// real token.Manager in these tests.
func (s *fakeUserStore) SetRefreshSequence(_ context.Context, email, seq string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u.RefreshSeq = seq
			return nil
		}
	}
	return models.ErrUserNotFound
}

func (s *fakeUserStore) SwapRefreshSequence(_ context.Context, email, oldSeq, newSeq string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			if u.RefreshSeq != oldSeq {
				return false, nil
			}
			u.RefreshSeq = newSeq
			return true, nil
		}
	}
	return false, nil
}

type fakeMail struct {
	sent []string
	fail bool
}

func (m *fakeMail) SendVerificationMail(user *models.User) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, user.Email)
	return nil
}

type fakeSessions struct {
	logins []int64
}

func (s *fakeSessions) RecordLogin(_ context.Context, userID int64, _, _ string) {
	s.logins = append(s.logins, userID)
}

type authServiceFixture struct {
	users    *fakeUserStore
	tokens   *token.Manager
	mail     *fakeMail
	sessions *fakeSessions
	svc      *AuthService
}

func newAuthServiceFixture(users ...*models.User) *authServiceFixture {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := newFakeUserStore(users...)
	tokens := token.NewManager(token.NewCodec([]byte("test-secret")), store, 15*time.Minute, 7*24*time.Hour, log)
	mail := &fakeMail{}
	sessions := &fakeSessions{}
	return &authServiceFixture{
		users:    store,
		tokens:   tokens,
		mail:     mail,
		sessions: sessions,
		svc:      NewAuthService(store, tokens, mail, sessions, log),
	}
}

func verifiedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:            1,
		Email:         email,
		PasswordHash:  string(hash),
		EmailVerified: true,
		Roles:         models.NewRoleSet(models.RoleUser),
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture()

	user, err := f.svc.Register(context.Background(), "Ivan", "Petrov", "ivan@example.com", "secret123")
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.False(t, user.EmailVerified)
	assert.Len(t, user.VerifyToken, 50)
	assert.True(t, user.Roles.Has(models.RoleUser))
	assert.False(t, user.Roles.IsAdmin())
	// Password is stored hashed, never as given.
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))

	assert.Equal(t, []string{"ivan@example.com"}, f.mail.sent)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(verifiedUser(t, "ivan@example.com", "pw"))

	_, err := f.svc.Register(context.Background(), "Ivan", "Petrov", "ivan@example.com", "secret123")
	assert.ErrorIs(t, err, models.ErrUserAlreadyExists)
}

func TestRegister_MailFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture()
	f.mail.fail = true

	user, err := f.svc.Register(context.Background(), "Ivan", "Petrov", "ivan@example.com", "secret123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(verifiedUser(t, "ivan@example.com", "secret123"))

	user, pair, err := f.svc.Login(context.Background(), "ivan@example.com", "secret123", "127.0.0.1", "curl/8.0")
	require.NoError(t, err)
	require.NotNil(t, pair)

	email, err := f.tokens.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.Email, email)

	_, err = f.tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)

	assert.Equal(t, []int64{user.ID}, f.sessions.logins)
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(verifiedUser(t, "ivan@example.com", "secret123"))

	// Unknown email and wrong password are indistinguishable to the caller.
	_, _, err := f.svc.Login(context.Background(), "ghost@example.com", "secret123", "127.0.0.1", "")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, _, err = f.svc.Login(context.Background(), "ivan@example.com", "wrong", "127.0.0.1", "")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	assert.Empty(t, f.sessions.logins)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	t.Parallel()

	user := verifiedUser(t, "ivan@example.com", "secret123")
	user.EmailVerified = false
	f := newAuthServiceFixture(user)

	_, _, err := f.svc.Login(context.Background(), "ivan@example.com", "secret123", "127.0.0.1", "")
	assert.ErrorIs(t, err, models.ErrUserNotVerified)
}

func TestLogin_InvalidatesEarlierRefreshTokens(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(verifiedUser(t, "ivan@example.com", "secret123"))

	_, first, err := f.svc.Login(context.Background(), "ivan@example.com", "secret123", "127.0.0.1", "")
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), "ivan@example.com", "secret123", "127.0.0.1", "")
	require.NoError(t, err)

	_, err = f.tokens.ValidateRefresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, token.ErrRefreshInvalid)
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	user := verifiedUser(t, "ivan@example.com", "pw")
	user.EmailVerified = false
	user.VerifyToken = "the-code"
	f := newAuthServiceFixture(user)

	require.NoError(t, f.svc.VerifyEmail(context.Background(), "ivan@example.com", "the-code"))

	stored, err := f.users.FindUserByEmail(context.Background(), "ivan@example.com")
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	// The token is one-shot.
	assert.Empty(t, stored.VerifyToken)
	assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), "ivan@example.com", "the-code"), models.ErrAlreadyVerified)
}

func TestVerifyEmail_WrongCode(t *testing.T) {
	t.Parallel()

	user := verifiedUser(t, "ivan@example.com", "pw")
	user.EmailVerified = false
	user.VerifyToken = "the-code"
	f := newAuthServiceFixture(user)

	err := f.svc.VerifyEmail(context.Background(), "ivan@example.com", "not-the-code")
	assert.ErrorIs(t, err, models.ErrBadVerificationCode)

	stored, _ := f.users.FindUserByEmail(context.Background(), "ivan@example.com")
	assert.False(t, stored.EmailVerified)
}

func TestResendVerification(t *testing.T) {
	t.Parallel()

	user := verifiedUser(t, "ivan@example.com", "pw")
	user.EmailVerified = false
	f := newAuthServiceFixture(user)

	require.NoError(t, f.svc.ResendVerification(context.Background(), "ivan@example.com"))
	assert.Equal(t, []string{"ivan@example.com"}, f.mail.sent)

	verified := verifiedUser(t, "done@example.com", "pw")
	f2 := newAuthServiceFixture(verified)
	assert.ErrorIs(t, f2.svc.ResendVerification(context.Background(), "done@example.com"), models.ErrAlreadyVerified)
}

func TestLogout_RevokesRefreshTokens(t *testing.T) {
	t.Parallel()

	f := newAuthServiceFixture(verifiedUser(t, "ivan@example.com", "secret123"))

	_, pair, err := f.svc.Login(context.Background(), "ivan@example.com", "secret123", "127.0.0.1", "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), "ivan@example.com"))

	_, err = f.tokens.ValidateRefresh(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, token.ErrRefreshInvalid)
}
