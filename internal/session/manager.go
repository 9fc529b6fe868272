package session

import (
	"context"       // Request-scoped cancellation
	"crypto/sha256" // Hash for HKDF
	"fmt"           // Error wrapping
	"io"            // Reading derived key bytes
	"net/http"      // HTTP status codes
	"time"          // Time durations

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/hkdf"   // Key derivation
)

const contextKey = "session"

// Options configure the session cookie
type Options struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Manager reads and writes sessions to the signed cookie
type Manager struct {
	key     []byte
	opts    Options
	revoker Revoker
}

func NewManager(secret string, opts Options, revoker Revoker) (*Manager, error) {
	key, err := DeriveKey(secret, "session-cookie")
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		opts.CookieName = "session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	return &Manager{key: key, opts: opts, revoker: revoker}, nil
}

// DeriveKey expands the application secret into a 32-byte key bound to label
func DeriveKey(secret, label string) ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(label)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", label, err)
	}
	return key, nil
}

// Load decodes the request cookie. Missing, invalid, expired and revoked
// cookies all yield an empty anonymous session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}
	s, err := decode(cookie.Value, m.key)
	if err != nil {
		logrus.WithError(err).Debug("discarding invalid session cookie")
		return &Session{modified: true}
	}
	if s.ID != "" {
		revoked, err := m.revoker.IsRevoked(r.Context(), s.ID)
		if err != nil {
			logrus.WithError(err).Error("session revocation lookup failed")
			return &Session{modified: true}
		}
		if revoked {
			return &Session{modified: true}
		}
	}
	return s
}

// Save writes the session cookie if anything changed
func (m *Manager) Save(c *gin.Context, s *Session) error {
	if !s.modified {
		return nil
	}
	c.SetSameSite(http.SameSiteLaxMode)
	if s.empty() {
		c.SetCookie(m.opts.CookieName, "", -1, "/", "", m.opts.Secure, true)
		s.modified = false
		return nil
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = time.Now().Add(m.opts.TTL)
	}
	value, err := encode(s, m.key, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(m.opts.CookieName, value, maxAge, "/", "", m.opts.Secure, true)
	s.modified = false
	return nil
}

// Revoke blocks the session ID until its natural expiry
func (m *Manager) Revoke(ctx context.Context, s *Session) error {
	if s.ID == "" {
		return nil
	}
	until := s.ExpiresAt
	if until.IsZero() {
		until = time.Now().Add(m.opts.TTL)
	}
	return m.revoker.Revoke(ctx, s.ID, until)
}

// Middleware loads the session into the gin context
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, m.Load(c.Request))
		c.Next()
	}
}

// FromContext returns the request session, creating an empty one if the
// middleware did not run.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := &Session{}
	c.Set(contextKey, s)
	return s
}
