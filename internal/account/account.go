// Package account manages tracker users: registration, password hashing and
// sign-in checks. Passwords are stored as bcrypt hashes only.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
)

var (
	// ErrInvalidCredentials indicates an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserExists indicates the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInactive indicates the account is disabled.
	ErrInactive = errors.New("account is inactive")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("password is too short")
	// ErrInvalidEmail indicates a malformed email address.
	ErrInvalidEmail = errors.New("invalid email address")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Store is the persistence boundary for accounts.
type Store interface {
	LoadUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, email string) (model.User, error)
	SaveUsers(ctx context.Context, users []model.User) error
}

// Service implements account operations.
type Service struct {
	store Store
	cost  int
}

// NewService constructs an account service. cost <= 0 uses bcrypt.DefaultCost.
func NewService(store Store, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost}
}

// NewUser describes an account to register.
type NewUser struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	AssignmentTitle string
	Role            model.Role
}

// Register adds a user with a hashed password.
func (s *Service) Register(ctx context.Context, in NewUser) (model.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return model.User{}, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleViewer
	}
	if !role.IsValid() {
		return model.User{}, fmt.Errorf("invalid role: %s", role)
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return model.User{}, err
	}

	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load users: %w", err)
	}
	if slices.ContainsFunc(users, func(u model.User) bool { return strings.EqualFold(u.Email, email) }) {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserExists, email)
	}

	u := model.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		AssignmentTitle: strings.TrimSpace(in.AssignmentTitle),
		Role:            role,
		Status:          model.UserActive,
	}
	if err := s.store.SaveUsers(ctx, append(users, u)); err != nil {
		return model.User{}, fmt.Errorf("failed to save users: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when password matches. Unknown users and
// stored values that are not bcrypt hashes both fail as invalid credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.store.GetUser(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return model.User{}, ErrInvalidCredentials
	}
	if !u.IsActive() {
		return model.User{}, ErrInactive
	}
	return u, nil
}

// SetPassword replaces the user's password hash.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.update(ctx, email, func(u *model.User) { u.PasswordHash = hash })
}

// SetStatus enables or disables an account.
func (s *Service) SetStatus(ctx context.Context, email string, status model.UserStatus) error {
	if status != model.UserActive && status != model.UserInactive {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.update(ctx, email, func(u *model.User) { u.Status = status })
}

// SetRole changes an account's role.
func (s *Service) SetRole(ctx context.Context, email string, role model.Role) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", role)
	}
	return s.update(ctx, email, func(u *model.User) { u.Role = role })
}

func (s *Service) update(ctx context.Context, email string, fn func(u *model.User)) error {
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	i := slices.IndexFunc(users, func(u model.User) bool { return strings.EqualFold(u.Email, strings.TrimSpace(email)) })
	if i < 0 {
		return fmt.Errorf("user %s: %w", email, db.ErrNotFound)
	}
	fn(&users[i])
	if err := s.store.SaveUsers(ctx, users); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return strings.ToLower(addr.Address), nil
}
