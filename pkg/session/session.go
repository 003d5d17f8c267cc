package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/medwards/darkreign2/pkg/credentials"
	"github.com/medwards/darkreign2/pkg/crypt"
)

// Session is a reference-counted handle to a shared session state.
//
// Handles are copied with Clone and dropped with Release; the underlying
// state's owned resources (the symmetric key) are released exactly once,
// when the last handle drops. Any number of handles may concurrently read
// the session and mutate it through Touch, MarkProcessed, and the sequence
// test-and-set operations.
//
// Reinit is the exception: it is a detach-and-replace on the handle itself
// and assumes a single logical owner per handle. Clone freely across
// goroutines; do not Reinit one handle from several.
type Session struct {
	st *state
}

// Config describes a session to create.
type Config struct {
	// Attributes is the negotiated encryption policy.
	Attributes Attributes

	// Key is the symmetric key for encrypted sessions. Ownership transfers
	// to the session, which zeroizes it when the last handle drops.
	Key *crypt.SymmetricKey

	// Cert is the certificate the session was authenticated with.
	// Ownership transfers to the session.
	Cert *credentials.AuthCertificate

	// RemoteID, when non-zero, is an externally supplied session id; the
	// session is marked remote and its uniqueness is the remote source's
	// responsibility. Zero means allocate a local id.
	RemoteID uint16

	// Allocator overrides the process-wide id allocator. Nil uses the
	// default. Intended for tests and embedders running isolated id spaces.
	Allocator *IDAllocator

	// Clock overrides the wall clock used for the last-action timestamp.
	// Nil uses the real clock.
	Clock clock.Clock
}

// Invalid returns a handle to the process-wide invalid session (id 0).
// The handle is fully operational but IsValid reports false; sequence checks
// and touches act on the shared invalid state and carry no meaning.
func Invalid() *Session {
	invalidState.refs.Add(1)
	return &Session{st: invalidState}
}

// NewSession creates a session with a fresh, exclusively owned state.
func NewSession(config Config) *Session {
	s := &Session{st: newState(config.Clock)}
	s.init(config)
	return s
}

// Clone returns a new handle sharing this session's state.
func (s *Session) Clone() *Session {
	s.st.refs.Add(1)
	return &Session{st: s.st}
}

// Release drops this handle's reference. When the last handle drops, the
// session's key is zeroized and key/cert released. The handle must not be
// used after Release.
func (s *Session) Release() {
	s.st.decRef()
}

// Reinit re-initializes the handle as if freshly created.
//
// If the current state is shared with other handles, the handle first
// detaches: it drops its reference and attaches a brand-new private state,
// so the re-init is never visible through the other handles.
func (s *Session) Reinit(config Config) {
	// A handle cloned between the load and the decrement still holds its own
	// reference, so the decrement cannot release a state someone shares; it
	// can only reach zero if every other handle dropped in the meantime.
	if s.st.refs.Load() > 1 {
		clk := s.st.clk
		if config.Clock != nil {
			clk = config.Clock
		}
		s.st.decRef()
		s.st = newState(clk)
	}
	s.init(config)
}

// init sets up the state for a new logical session. The whole initialization
// runs under the state lock so a re-used (unshared, re-inited) state is
// never observed half-written by concurrent readers of the old session.
func (s *Session) init(config Config) {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if config.Clock != nil {
		st.clk = config.Clock
	}

	if config.RemoteID != 0 {
		st.id = config.RemoteID
		st.isRemote = true
	} else {
		alloc := config.Allocator
		if alloc == nil {
			alloc = defaultAllocator
		}
		st.id = alloc.Next()
		st.isRemote = false
	}

	// A re-initialized unshared state may still own a key from its previous
	// life; that key is unreachable afterwards, so scrub it now.
	if st.key != nil && st.key != config.Key {
		st.key.Zeroize()
	}

	st.attr = config.Attributes
	st.key = config.Key
	st.cert = config.Cert

	st.recvSeq = 0
	st.sendSeq = 0
	st.touchLocked()
}

// ID returns the session id. 0 means the invalid session.
func (s *Session) ID() uint16 {
	return s.st.id
}

// IsRemote reports whether the id was supplied by a remote source.
func (s *Session) IsRemote() bool {
	return s.st.isRemote
}

// Attributes returns the session's encryption attributes.
func (s *Session) Attributes() Attributes {
	return s.st.attr
}

// IsValid reports whether the session is usable for cryptographic
// decisions: it has a non-zero id, and if an encryption mode is negotiated,
// both key and certificate are present. A missing key or certificate is
// reported only here, never as a separate error.
func (s *Session) IsValid() bool {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.id == 0 {
		return false
	}
	if st.attr.Mode != EncryptModeNone {
		return st.key != nil && st.cert != nil
	}
	return true
}

// Key returns the session's symmetric key, or nil for unencrypted sessions
// and sessions whose last handle was released.
func (s *Session) Key() *crypt.SymmetricKey {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.key
}

// Certificate returns the certificate the session was authenticated with,
// or nil.
func (s *Session) Certificate() *credentials.AuthCertificate {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cert
}

// TestSetRecvSeq validates an incoming sequence number and, on acceptance,
// stores it as the new receive high-water mark.
//
// Reliable transports accept only the exact successor (strict order, no
// gaps, no duplicates). Unreliable transports accept any number above the
// stored one (gaps tolerated, stale and duplicate numbers rejected).
//
// Arithmetic is plain uint16: the reliable check follows the counter through
// the 0xFFFF->0 wrap, but in unreliable mode a wrapped number compares below
// the stored mark and is rejected until it climbs past it. Known limitation
// of the 16-bit scheme; sessions are re-keyed long before it matters.
func (s *Session) TestSetRecvSeq(seq uint16, reliable bool) bool {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	ok := accept(st.recvSeq, seq, reliable)
	if ok {
		st.recvSeq = seq
		st.recvCount++
	}
	return ok
}

// TestSetSendSeq is TestSetRecvSeq for the send direction.
func (s *Session) TestSetSendSeq(seq uint16, reliable bool) bool {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	ok := accept(st.sendSeq, seq, reliable)
	if ok {
		st.sendSeq = seq
		st.sendCount++
	}
	return ok
}

// accept implements the two anti-replay acceptance policies.
func accept(current, seq uint16, reliable bool) bool {
	if reliable {
		return seq == current+1
	}
	return seq > current
}

// Touch refreshes the session's last-action timestamp. The encryption
// protocols call this on every successfully processed message; the registry
// sweeps sessions whose timestamp has gone stale.
func (s *Session) Touch() {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	st.touchLocked()
}

// LastAction returns the time of the session's last Touch.
func (s *Session) LastAction() time.Time {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastAction
}

// MarkProcessed bumps the processed-message diagnostic counter.
func (s *Session) MarkProcessed() {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	st.processCount++
}

// Stats returns the diagnostic counters: accepted receive sequence checks,
// accepted send sequence checks, and processed messages.
func (s *Session) Stats() (recv, send, processed uint64) {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.recvCount, st.sendCount, st.processCount
}

// Equal reports whether two handles name the same session.
//
// Session identity is the id alone: two handles with equal ids are the same
// session for lookup purposes even when their underlying states differ.
// Remote ids share the keyspace with local ones, so a remote source can
// collide with a local session; that risk belongs to the id assignment
// protocol, not to this comparison.
func (s *Session) Equal(other *Session) bool {
	if other == nil {
		return false
	}
	return s.st.id == other.st.id
}

// String returns the short dump form.
func (s *Session) String() string {
	return s.Dump(false)
}

// Dump renders the session for logs. The short form is a single line,
// "(Session: <id> <timestamp>)"; the verbose form lists every field. Output
// is for humans, not for parsing.
func (s *Session) Dump(verbose bool) string {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	if !verbose {
		return fmt.Sprintf("(Session: %d %s)", st.id, st.lastAction.Format(time.ANSIC))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session (Id=%d)\n", st.id)
	fmt.Fprintf(&b, "  IsRemote    = %t\n", st.isRemote)
	fmt.Fprintf(&b, "  LastAction  = %s\n", st.lastAction.Format(time.ANSIC))
	fmt.Fprintf(&b, "  EncryptAttr = %s\n", st.attr)
	fmt.Fprintf(&b, "  RecvSeq     = %d\n", st.recvSeq)
	fmt.Fprintf(&b, "  SendSeq     = %d\n", st.sendSeq)
	fmt.Fprintf(&b, "  Counts      = recv:%d send:%d processed:%d\n",
		st.recvCount, st.sendCount, st.processCount)

	b.WriteString("  SymmetricKey: ")
	if st.key != nil {
		b.WriteString(st.key.String())
	} else {
		b.WriteString("NIL")
	}
	b.WriteString("\n  Certificate:  ")
	if st.cert != nil {
		b.WriteString(st.cert.String())
	} else {
		b.WriteString("NIL")
	}
	b.WriteString("\n")

	return b.String()
}
