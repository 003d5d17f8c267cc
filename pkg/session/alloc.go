package session

import "sync"

// IDAllocator hands out session ids for locally created sessions.
// Ids increase monotonically and wrap around at 16 bits, skipping 0 (the
// reserved invalid id). Allocation does not track which ids are live; id
// reuse after 65535 allocations is accepted, as session lifetimes are far
// shorter than the id space.
//
// Safe for concurrent use. The package keeps one process-wide allocator for
// NewSession; tests and embedders can create isolated instances.
type IDAllocator struct {
	next uint16
	mu   sync.Mutex
}

// NewIDAllocator creates an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 1}
}

// Next returns the next session id. Never returns 0.
func (a *IDAllocator) Next() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next
	a.next++
	if a.next == 0 {
		a.next = 1
	}
	return id
}

// defaultAllocator backs NewSession/Reinit when no allocator is injected.
var defaultAllocator = NewIDAllocator()
