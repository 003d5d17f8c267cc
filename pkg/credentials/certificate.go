// Package credentials carries the authentication certificate attached to
// authenticated sessions.
//
// The certificate is opaque to the session layer: it is produced and verified
// by the authentication protocol, and the session subsystem only stores it,
// reports expiry, and renders it for diagnostics. Parsing and signature
// validation live with the authentication protocol, not here.
package credentials

import (
	"errors"
	"fmt"
	"time"
)

// Errors for certificate construction.
var (
	// ErrInvalidValidity is returned when NotAfter precedes NotBefore.
	ErrInvalidValidity = errors.New("credentials: certificate expires before it becomes valid")

	// ErrInvalidUserID is returned when the user id is zero.
	ErrInvalidUserID = errors.New("credentials: invalid user id")
)

// AuthCertificate identifies the authenticated principal a session was
// created for. Immutable after construction.
type AuthCertificate struct {
	userID      uint32
	communityID uint32
	notBefore   time.Time
	notAfter    time.Time // zero value = no expiration
	raw         []byte
}

// Config describes a certificate to construct.
type Config struct {
	// UserID is the authenticated user's id. Required, non-zero.
	UserID uint32

	// CommunityID is the community/realm the user authenticated against.
	CommunityID uint32

	// NotBefore is the start of the validity window.
	NotBefore time.Time

	// NotAfter is the end of the validity window.
	// The zero value means the certificate never expires.
	NotAfter time.Time

	// Raw is the encoded certificate as received from the auth server.
	// Copied; the caller's slice is not retained.
	Raw []byte
}

// New creates a certificate from validated fields.
func New(config Config) (*AuthCertificate, error) {
	if config.UserID == 0 {
		return nil, ErrInvalidUserID
	}
	if !config.NotAfter.IsZero() && config.NotAfter.Before(config.NotBefore) {
		return nil, ErrInvalidValidity
	}

	c := &AuthCertificate{
		userID:      config.UserID,
		communityID: config.CommunityID,
		notBefore:   config.NotBefore,
		notAfter:    config.NotAfter,
	}
	if len(config.Raw) > 0 {
		c.raw = make([]byte, len(config.Raw))
		copy(c.raw, config.Raw)
	}
	return c, nil
}

// UserID returns the authenticated user's id.
func (c *AuthCertificate) UserID() uint32 {
	return c.userID
}

// CommunityID returns the community/realm id.
func (c *AuthCertificate) CommunityID() uint32 {
	return c.communityID
}

// NotBefore returns the start of the validity window.
func (c *AuthCertificate) NotBefore() time.Time {
	return c.notBefore
}

// NotAfter returns the end of the validity window.
// The zero value means the certificate never expires.
func (c *AuthCertificate) NotAfter() time.Time {
	return c.notAfter
}

// Raw returns a copy of the encoded certificate bytes.
func (c *AuthCertificate) Raw() []byte {
	if c.raw == nil {
		return nil
	}
	out := make([]byte, len(c.raw))
	copy(out, c.raw)
	return out
}

// IsExpired reports whether the certificate has expired at the given time.
// Never-expiring certificates always return false.
func (c *AuthCertificate) IsExpired(now time.Time) bool {
	return !c.notAfter.IsZero() && now.After(c.notAfter)
}

// IsValidAt reports whether now falls inside the validity window.
func (c *AuthCertificate) IsValidAt(now time.Time) bool {
	return !now.Before(c.notBefore) && !c.IsExpired(now)
}

// Lifetime returns the length of the validity window, or 0 for
// never-expiring certificates.
func (c *AuthCertificate) Lifetime() time.Duration {
	if c.notAfter.IsZero() {
		return 0
	}
	return c.notAfter.Sub(c.notBefore)
}

// String renders the certificate identity for diagnostics.
func (c *AuthCertificate) String() string {
	expiry := "never"
	if !c.notAfter.IsZero() {
		expiry = c.notAfter.Format(time.RFC3339)
	}
	return fmt.Sprintf("(AuthCertificate: user=%d community=%d expires=%s)",
		c.userID, c.communityID, expiry)
}
