// Package session keeps per-browser login state in a signed cookie.
package session

import (
	"slices" // Slice helpers
	"time"   // Time durations

	"github.com/google/uuid" // Session IDs
)

// Flash is a one-shot notice shown on the next rendered page
type Flash struct {
	Category string `json:"c"` // success, info, warning, danger
	Message  string `json:"m"`
}

// Session is the decoded cookie state for one request
type Session struct {
	ID        string    // Unique per login, used for revocation
	UserID    uint      // Zero when anonymous
	Email     string    // Email of the logged-in user
	ExpiresAt time.Time // Zero until first saved

	flashes  []Flash
	modified bool
}

// Authenticated reports whether a user is logged in
func (s *Session) Authenticated() bool {
	return s.UserID != 0
}

// Authenticate starts a fresh login. A new ID is issued so a revoked
// session can never be resurrected by logging in again.
func (s *Session) Authenticate(userID uint, email string) {
	s.ID = uuid.NewString()
	s.UserID = userID
	s.Email = email
	s.ExpiresAt = time.Time{}
	s.modified = true
}

// Clear drops all state, flashes included
func (s *Session) Clear() {
	*s = Session{modified: true}
}

// maxFlashes bounds the pending notices so the cookie stays under browser limits
const maxFlashes = 5

// AddFlash queues a notice. An identical pending notice is not repeated,
// and the oldest is dropped once maxFlashes are pending.
func (s *Session) AddFlash(category, message string) {
	f := Flash{Category: category, Message: message}
	if slices.Contains(s.flashes, f) {
		return
	}
	s.flashes = append(s.flashes, f)
	if len(s.flashes) > maxFlashes {
		s.flashes = slices.Clone(s.flashes[len(s.flashes)-maxFlashes:])
	}
	s.modified = true
}

// PopFlashes returns pending flashes and removes them from the session
func (s *Session) PopFlashes() []Flash {
	if len(s.flashes) == 0 {
		return nil
	}
	out := s.flashes
	s.flashes = nil
	s.modified = true
	return out
}

// Modified reports whether the session must be written back
func (s *Session) Modified() bool {
	return s.modified
}

func (s *Session) empty() bool {
	return !s.Authenticated() && len(s.flashes) == 0
}
