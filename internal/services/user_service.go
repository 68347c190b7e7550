package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finpilot/internal/core"
	"finpilot/internal/log"
	"finpilot/internal/store"
)

var (
	ErrUserExists         = errors.New("user with this upi id or phone already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingLogin       = errors.New("upi id or phone is required")
)

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, time.Time, error)
}

type (
	RegisterInput struct {
		Name     string `json:"name"`
		UPIID    string `json:"upiId"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}

	LoginInput struct {
		UPIID    string `json:"upiId"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}

	ResetPasswordInput struct {
		Name        string `json:"name"`
		UPIID       string `json:"upiId"`
		NewPassword string `json:"newPassword"`
	}

	Session struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
		User      core.User `json:"user"`
	}
)

type UserService struct {
	users  store.UserStore
	tokens TokenIssuer
	logger *log.Logger
	cost   int
	now    func() time.Time
	newID  func() string
}

func NewUserService(users store.UserStore, tokens TokenIssuer, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &UserService{
		users:  users,
		tokens: tokens,
		logger: logger.WithComponent(log.ComponentUser),
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func normalizeUPI(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	u := core.User{
		Name:  strings.TrimSpace(in.Name),
		UPIID: normalizeUPI(in.UPIID),
		Phone: strings.TrimSpace(in.Phone),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := core.ValidatePassword(in.Password); err != nil {
		return core.User{}, err
	}

	for _, l := range []store.UserLookup{{UPIID: u.UPIID}, {Phone: u.Phone}} {
		_, err := s.users.FindUser(ctx, l)
		if err == nil {
			return core.User{}, ErrUserExists
		}
		if !errors.Is(err, store.ErrNotFound) {
			return core.User{}, fmt.Errorf("check existing user: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.ID = s.newID()
	u.PasswordHash = string(hash)
	u.CreatedAt = s.now().UTC().Truncate(time.Millisecond)

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return core.User{}, ErrUserExists
		}
		return core.User{}, fmt.Errorf("save user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		log.NewFields().WithOperation(log.OpCreate).WithUser(u.ID).ToSlice()...)
	return u, nil
}

// Login checks the password of the user found by UPI id or phone and
// issues a token for them.
func (s *UserService) Login(ctx context.Context, in LoginInput) (Session, error) {
	l := store.UserLookup{UPIID: normalizeUPI(in.UPIID), Phone: strings.TrimSpace(in.Phone)}
	if l.Empty() {
		return Session{}, ErrMissingLogin
	}
	u, err := s.users.FindUser(ctx, l)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrUserNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUserID, u.ID)
		return Session{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// ResetPassword sets a new password when name and UPI id match a user.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	name := strings.TrimSpace(in.Name)
	upi := normalizeUPI(in.UPIID)
	if name == "" {
		return core.ErrEmptyName
	}
	if upi == "" {
		return core.ErrEmptyUPIID
	}
	if err := core.ValidatePassword(in.NewPassword); err != nil {
		return err
	}

	u, err := s.users.FindUser(ctx, store.UserLookup{UPIID: upi})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !strings.EqualFold(u.Name, name) {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "Password reset", log.FieldUserID, u.ID)
	return nil
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (core.User, error) {
	u, err := s.users.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	return u, err
}
