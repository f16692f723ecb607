package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserView is the presentation form of a user: no password hash, no
// verification token, roles as plain strings.
type UserView struct {
	ID        int64    `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// UserService handles the current-user profile and the admin user CRUD.
type UserService struct {
	users UserStore
	log   *logrus.Logger
}

// NewUserService initializes a new user service
func NewUserService(users UserStore, log *logrus.Logger) *UserService {
	return &UserService{users: users, log: log}
}

// Profile returns the authenticated user's own view.
func (s *UserService) Profile(requester *models.User) *UserView {
	return toUserView(requester)
}

// UpdateProfile updates the requester's own name fields. Blank fields keep
// their current value; email and roles are not self-serviceable.
func (s *UserService) UpdateProfile(ctx context.Context, requester *models.User, firstName, lastName string) (*UserView, error) {
	user, err := s.users.FindUserByID(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(firstName); v != "" {
		user.FirstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		user.LastName = v
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User %s updated their profile", user.Email)
	return toUserView(user), nil
}

// ListUsers returns every user in the system. Admin only.
func (s *UserService) ListUsers(ctx context.Context, requester *models.User) ([]*UserView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	users, err := s.users.FindAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, toUserView(u))
	}
	return views, nil
}

// GetUser returns one user by id. Admin only.
func (s *UserService) GetUser(ctx context.Context, id int64, requester *models.User) (*UserView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserView(user), nil
}

// CreateUser creates a user with the USER role and an unverified email.
// Admin only; unlike self-registration, no verification mail is sent.
func (s *UserService) CreateUser(ctx context.Context, requester *models.User, firstName, lastName, email, password string) (*UserView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, models.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        models.NewRoleSet(models.RoleUser),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User %s created by admin %s", user.Email, requester.Email)
	return toUserView(user), nil
}

// UpdateUser overwrites a user's name fields and, when roles are given,
// replaces the role set. Unknown role names are skipped; an update that
// names only unknown roles leaves the set untouched. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, id int64, requester *models.User, firstName, lastName string, roleNames []string) (*UserView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = firstName
	user.LastName = lastName
	roles := make([]models.Role, 0, len(roleNames))
	for _, name := range roleNames {
		roles = append(roles, models.Role(name))
	}
	if set := models.NewRoleSet(roles...); len(set) > 0 {
		user.Roles = set
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User %s updated by admin %s", user.Email, requester.Email)
	return toUserView(user), nil
}

// DeleteUser removes a user. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, id int64, requester *models.User) error {
	if !requester.Roles.IsAdmin() {
		return models.ErrNoAccess
	}
	user, err := s.users.FindUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, user); err != nil {
		return err
	}

	s.log.Infof("User %s deleted by admin %s", user.Email, requester.Email)
	return nil
}

func toUserView(user *models.User) *UserView {
	return &UserView{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     user.Roles.Names(),
	}
}
