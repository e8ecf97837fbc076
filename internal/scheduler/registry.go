package scheduler

import "sync"

// Registry maps each user to the live timer handles realizing their
// reminder. It owns the only mutable handle state in the process; the map
// lock is held just for map mutation, never across Stop calls on handles.
type Registry struct {
	mu      sync.Mutex
	handles map[int64][]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int64][]Handle)}
}

// Install atomically replaces the user's handle set: every existing handle
// is stopped first, then the new list is stored. Calls for the same user are
// serialized by the engine; calls for different users proceed independently.
func (r *Registry) Install(userID int64, handles []Handle) {
	r.CancelAll(userID)
	if len(handles) == 0 {
		return
	}
	r.mu.Lock()
	r.handles[userID] = handles
	r.mu.Unlock()
}

// CancelAll stops and removes every handle for the user. No-op if none exist.
func (r *Registry) CancelAll(userID int64) {
	r.mu.Lock()
	old := r.handles[userID]
	delete(r.handles, userID)
	r.mu.Unlock()

	for _, h := range old {
		h.Stop()
	}
}

// Count returns the number of live handles for the user.
func (r *Registry) Count(userID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles[userID])
}
