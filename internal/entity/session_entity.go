package entity

import "time"

// Session is the authenticated identity attached to a request or a
// subscription connection.
type Session struct {
	User    *SessionUser `json:"user,omitempty"`
	Expires time.Time    `json:"expires"`
}

type SessionUser struct {
	Id            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Name          string `json:"name,omitempty"`
	Image         string `json:"image,omitempty"`
}

// UserId returns the session user's id, or "" when s or its user is nil.
func (s *Session) UserId() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Id
}

// Active reports whether s carries a user and has not expired at now.
// A zero Expires never expires.
func (s *Session) Active(now time.Time) bool {
	if s.UserId() == "" {
		return false
	}
	return s.Expires.IsZero() || now.Before(s.Expires)
}
