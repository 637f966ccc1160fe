package domain

import "time"

// PortalSession is the Issuer's own login state, established by credential verification.
type PortalSession struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s PortalSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
