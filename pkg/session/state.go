package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/medwards/darkreign2/pkg/credentials"
	"github.com/medwards/darkreign2/pkg/crypt"
)

// state is the shared payload behind one or more Session handles.
//
// Identity fields (id, isRemote, attr) and the key/cert references are set
// once during init, under mu, and never reassigned; reads after publication
// need no lock. Everything else mutates under mu. The refcount stands apart:
// it guards the state's owned resources (key zeroization on last drop), not
// field consistency, and is touched only atomically.
type state struct {
	refs atomic.Int32

	// Immutable after init.
	id       uint16 // 0 = the invalid sentinel
	isRemote bool
	attr     Attributes
	key      *crypt.SymmetricKey          // nil unless attr.Mode != EncryptModeNone
	cert     *credentials.AuthCertificate // nil unless attr.Mode != EncryptModeNone
	clk      clock.Clock

	// Mutable, guarded by mu.
	mu           sync.Mutex
	lastAction   time.Time
	recvSeq      uint16
	sendSeq      uint16
	recvCount    uint64
	sendCount    uint64
	processCount uint64
}

// newState creates an empty state with one reference.
func newState(clk clock.Clock) *state {
	if clk == nil {
		clk = clock.New()
	}
	st := &state{clk: clk}
	st.refs.Add(1)
	return st
}

// decRef drops one reference. The caller whose decrement reaches zero
// releases the owned resources, exactly once.
func (st *state) decRef() {
	if st.refs.Add(-1) == 0 {
		st.releaseResources()
	}
}

// releaseResources zeroizes the key and drops key/cert.
func (st *state) releaseResources() {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.key != nil {
		st.key.Zeroize()
		st.key = nil
	}
	st.cert = nil
}

// touchLocked refreshes lastAction. Caller holds mu.
func (st *state) touchLocked() {
	st.lastAction = st.clk.Now()
}

// invalidState is the process-wide state shared by all invalid handles.
// The package itself holds one reference, so handle drops never release it.
var invalidState = newState(nil)
