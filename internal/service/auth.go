package service

import (
	"context"                             // Request-scoped cancellation
	"errors"                              // Error matching
	"fmt"                                 // Error wrapping
	"regexp"                              // Email shape check
	"strings"                             // String trimming
	"stroke_registry/internal/domain"     // Importing domain models
	"stroke_registry/internal/repository" // Credential and patient stores
	"stroke_registry/internal/session"    // Session state
	"time"                                // Time durations

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// emailPattern is a shape check, not RFC 5322
var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

// Identity is the authenticated user carried by a session
type Identity struct {
	UserID uint
	Email  string
}

// AuthService registers and authenticates users and owns session login state
type AuthService struct {
	users     repository.UserRepository
	sessions  *session.Manager
	cost      int
	dummyHash []byte
}

func NewAuthService(users repository.UserRepository, sessions *session.Manager, bcryptCost int) (*AuthService, error) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against for unknown emails
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{users: users, sessions: sessions, cost: bcryptCost, dummyHash: dummy}, nil
}

// ValidEmail reports whether email has the local@domain.tld shape
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Register hashes the password and stores a new user
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email) // Trim, but keep the case as typed
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password", ErrMalformedInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost) // Hash the password
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password", ErrMalformedInput)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, email, string(hash)) // Insert into the credential store
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"type":      "register",
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("User registered")
	return user, nil
}

// Login checks the credentials and, on success, authenticates sess.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, email, password string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email) // Query user by email
	if errors.Is(err, repository.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		logrus.WithField("reason", "unknown_email").Info("Login failed")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": user.ID, "reason": "bad_password"}).Info("Login failed")
		return nil, ErrInvalidCredentials
	}
	sess.Authenticate(user.ID, user.Email) // Fresh session ID on every login
	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"type":      "login",
		"timestamp": time.Now().Format(time.RFC3339),
	}).Info("User logged in")
	return user, nil
}

// Logout revokes and clears sess. Calling it on an anonymous session is fine.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	err := s.sessions.Revoke(ctx, sess)
	sess.Clear()
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RequireSession is the guard for protected operations
func (s *AuthService) RequireSession(sess *session.Session) (Identity, error) {
	if sess == nil || !sess.Authenticated() {
		return Identity{}, ErrNotAuthenticated
	}
	return Identity{UserID: sess.UserID, Email: sess.Email}, nil
}
