// Package session implements the authenticated-session subsystem of the WON
// networking middleware.
//
// A Session is a reference-counted handle to the shared state of one
// authenticated logical connection: its id, negotiated encryption
// attributes, optional symmetric key and certificate, anti-replay sequence
// counters, and a last-activity timestamp. Sessions are created by the
// authentication protocols, kept in a Registry for lookup and idle sweeps,
// and consulted by the encryption protocols on every message.
//
// There are two kinds of sessions: local sessions, whose ids come from the
// process-wide allocator and are unique within the process, and remote
// sessions, whose ids were supplied by a remote source and may collide. The
// identity of a session is its id alone; see Session.Equal.
package session

import "fmt"

// EncryptMode identifies the cipher negotiated for a session.
type EncryptMode int

const (
	// EncryptModeNone indicates an authenticated but unencrypted session.
	EncryptModeNone EncryptMode = iota

	// EncryptModeBlowfish indicates Blowfish symmetric encryption using the
	// session's key (see pkg/crypt).
	EncryptModeBlowfish
)

// String returns a human-readable name for the encryption mode.
func (m EncryptMode) String() string {
	switch m {
	case EncryptModeNone:
		return "NONE"
	case EncryptModeBlowfish:
		return "BLOWFISH"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true if the mode is a defined value.
func (m EncryptMode) IsValid() bool {
	return m == EncryptModeNone || m == EncryptModeBlowfish
}

// Attributes describes a session's negotiated encryption policy.
// It is a plain comparable value: attributes have no identity and are fixed
// for the lifetime of the session state they were assigned to.
type Attributes struct {
	// Mode is the negotiated cipher.
	Mode EncryptMode

	// Sequenced enables anti-replay sequence checking for the session.
	Sequenced bool

	// SessionScoped reuses the cryptographic context across the whole
	// session rather than re-establishing it per message.
	SessionScoped bool

	// EncryptAll encrypts every message field instead of a subset.
	EncryptAll bool
}

// String renders the attributes in the dump form
// "(<mode> <sequenced> <scoped> <all>)".
func (a Attributes) String() string {
	return fmt.Sprintf("(%s %t %t %t)", a.Mode, a.Sequenced, a.SessionScoped, a.EncryptAll)
}
