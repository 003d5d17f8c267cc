package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func newTestRegistry(maxSessions int, clk clock.Clock) *Registry {
	return NewRegistry(RegistryConfig{MaxSessions: maxSessions, Clock: clk})
}

func TestRegistry_AddFindRemove(t *testing.T) {
	r := newTestRegistry(0, nil)
	s := NewSession(Config{Allocator: NewIDAllocator()})
	defer s.Release()

	if err := r.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", r.Count())
	}

	found := r.Find(s.ID())
	if found == nil {
		t.Fatal("Find returned nil for registered id")
	}
	if !found.Equal(s) {
		t.Error("Find returned a different session")
	}
	found.Release()

	r.Remove(s.ID())
	if r.Count() != 0 {
		t.Errorf("Count after Remove: got %d, want 0", r.Count())
	}
	if r.Find(s.ID()) != nil {
		t.Error("Find returned a removed session")
	}

	// Removing again is a no-op.
	r.Remove(s.ID())
}

func TestRegistry_AddRejections(t *testing.T) {
	r := newTestRegistry(2, nil)
	alloc := NewIDAllocator()

	if err := r.Add(nil); err != ErrInvalidSessionID {
		t.Errorf("Add(nil): got err %v, want %v", err, ErrInvalidSessionID)
	}

	invalid := Invalid()
	defer invalid.Release()
	if err := r.Add(invalid); err != ErrInvalidSessionID {
		t.Errorf("Add(invalid): got err %v, want %v", err, ErrInvalidSessionID)
	}

	s1 := NewSession(Config{Allocator: alloc})
	defer s1.Release()
	if err := r.Add(s1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	dup := NewSession(Config{RemoteID: s1.ID()})
	defer dup.Release()
	if err := r.Add(dup); err != ErrDuplicateSession {
		t.Errorf("Add duplicate id: got err %v, want %v", err, ErrDuplicateSession)
	}

	s2 := NewSession(Config{Allocator: alloc})
	defer s2.Release()
	if err := r.Add(s2); err != nil {
		t.Fatalf("Add second: %v", err)
	}
	if !r.IsFull() {
		t.Error("IsFull: got false at capacity")
	}

	s3 := NewSession(Config{Allocator: alloc})
	defer s3.Release()
	if err := r.Add(s3); err != ErrRegistryFull {
		t.Errorf("Add over capacity: got err %v, want %v", err, ErrRegistryFull)
	}
}

func TestRegistry_HoldsItsOwnReference(t *testing.T) {
	r := newTestRegistry(0, nil)
	s := NewSession(Config{Allocator: NewIDAllocator()})

	if err := r.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.st.refs.Load(); got != 2 {
		t.Fatalf("refcount after Add: got %d, want 2", got)
	}

	// The caller can drop its handle; the registry keeps the session alive.
	id := s.ID()
	s.Release()

	found := r.Find(id)
	if found == nil {
		t.Fatal("session gone after caller released its handle")
	}
	if got := found.st.refs.Load(); got != 2 {
		t.Errorf("refcount after Find: got %d, want 2", got)
	}

	r.Remove(id)
	if got := found.st.refs.Load(); got != 1 {
		t.Errorf("refcount after Remove: got %d, want 1", got)
	}
	found.Release()
}

func TestRegistry_SweepIdle(t *testing.T) {
	mock := clock.NewMock()
	r := newTestRegistry(0, mock)
	alloc := NewIDAllocator()

	idle := NewSession(Config{Allocator: alloc, Clock: mock})
	defer idle.Release()
	active := NewSession(Config{Allocator: alloc, Clock: mock})
	defer active.Release()

	if err := r.Add(idle); err != nil {
		t.Fatalf("Add idle: %v", err)
	}
	if err := r.Add(active); err != nil {
		t.Fatalf("Add active: %v", err)
	}

	mock.Add(10 * time.Minute)
	active.Touch()

	removed := r.SweepIdle(5 * time.Minute)
	if removed != 1 {
		t.Fatalf("SweepIdle: removed %d, want 1", removed)
	}
	if r.Find(idle.ID()) != nil {
		t.Error("idle session survived the sweep")
	}
	found := r.Find(active.ID())
	if found == nil {
		t.Fatal("touched session was swept")
	}
	found.Release()

	// Nothing left to sweep.
	if removed := r.SweepIdle(5 * time.Minute); removed != 0 {
		t.Errorf("second SweepIdle: removed %d, want 0", removed)
	}
}

func TestRegistry_ForEach(t *testing.T) {
	r := newTestRegistry(0, nil)
	alloc := NewIDAllocator()

	for i := 0; i < 4; i++ {
		s := NewSession(Config{Allocator: alloc})
		if err := r.Add(s); err != nil {
			t.Fatalf("Add: %v", err)
		}
		s.Release()
	}

	visited := 0
	r.ForEach(func(*Session) bool {
		visited++
		return true
	})
	if visited != 4 {
		t.Errorf("ForEach visited %d sessions, want 4", visited)
	}

	visited = 0
	r.ForEach(func(*Session) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("ForEach with early stop visited %d sessions, want 1", visited)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := newTestRegistry(0, nil)
	s := NewSession(Config{Allocator: NewIDAllocator()})

	if err := r.Add(s); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r.Clear()
	if r.Count() != 0 {
		t.Errorf("Count after Clear: got %d, want 0", r.Count())
	}
	if got := s.st.refs.Load(); got != 1 {
		t.Errorf("refcount after Clear: got %d, want 1", got)
	}
	s.Release()
}
