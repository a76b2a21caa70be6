package alert

import (
	"sort"
	"sync"

	"hazardwatch/internal/domain"
)

// Registry is the in-memory subscriber store. Profiles are owned by clients
// and replaced whole on update; the engine only reads them.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]domain.SubscriberProfile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]domain.SubscriberProfile)}
}

// Upsert stores or replaces a profile keyed by its ID.
func (r *Registry) Upsert(p domain.SubscriberProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
}

// Delete removes a profile. Removing an unknown ID is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
}

// Get returns one profile.
func (r *Registry) Get(id string) (domain.SubscriberProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	return p, ok
}

// List returns all profiles sorted by ID, so matching iterates in a stable
// order.
func (r *Registry) List() []domain.SubscriberProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SubscriberProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
