package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Reconciler tracks the newest version seen per order. Notifications that are
// not strictly newer than what the client already holds are discarded.
type Reconciler struct {
	mu     sync.Mutex
	latest map[uuid.UUID]int64
}

func NewReconciler() *Reconciler {
	return &Reconciler{latest: make(map[uuid.UUID]int64)}
}

// Observe records a version the client already applied, e.g. from its own
// optimistic update.
func (r *Reconciler) Observe(orderID uuid.UUID, version int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version > r.latest[orderID] {
		r.latest[orderID] = version
	}
}

// Accept reports whether the change should be applied and, if so, records it.
func (r *Reconciler) Accept(change Change) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if change.Version <= r.latest[change.OrderID] {
		return false
	}
	r.latest[change.OrderID] = change.Version
	return true
}

// Latest returns the newest recorded version, or zero.
func (r *Reconciler) Latest(orderID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest[orderID]
}
