// Package cache holds read-through query results keyed by logical group name.
//
// Any component that mutates remote state gets the Registry handle injected and calls
// Invalidate for the groups it made stale.
package cache

import (
	"log"
	"sync"
	"time"
)

// Logical groups shared by the mission and moderation screens.
const (
	GroupMissions           = "missions"
	GroupMissionSubmissions = "mission_submissions"
)

type entry struct {
	value     any
	expiresAt time.Time
}

type group struct {
	entries       map[string]entry
	invalidations uint64
}

type Registry struct {
	mu     sync.RWMutex
	ttl    time.Duration
	groups map[string]*group
	now    func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		ttl:    ttl,
		groups: make(map[string]*group),
		now:    time.Now,
	}
}

// groupLocked returns the named group, creating it. Caller holds mu for writing.
func (r *Registry) groupLocked(name string) *group {
	g, ok := r.groups[name]
	if !ok {
		g = &group{entries: make(map[string]entry)}
		r.groups[name] = g
	}
	return g
}

// Get returns a live entry.
func (r *Registry) Get(groupName, key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[groupName]
	if !ok {
		return nil, false
	}
	e, ok := g.entries[key]
	if !ok || !r.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (r *Registry) Set(groupName, key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groupLocked(groupName).entries[key] = entry{value: value, expiresAt: r.now().Add(r.ttl)}
}

// setIfCurrent stores value unless the group was invalidated after gen was read.
func (r *Registry) setIfCurrent(groupName, key string, value any, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	g := r.groupLocked(groupName)
	if g.invalidations != gen {
		return false
	}
	g.entries[key] = entry{value: value, expiresAt: r.now().Add(r.ttl)}
	return true
}

// Invalidate drops every entry in the group. There is no per-key invalidation.
func (r *Registry) Invalidate(groupName string) {
	r.mu.Lock()
	g := r.groupLocked(groupName)
	dropped := len(g.entries)
	g.entries = make(map[string]entry)
	g.invalidations++
	r.mu.Unlock()

	log.Printf("🧹 [CACHE] Invalidated group %q (%d entries)", groupName, dropped)
}

// Invalidations reports how many times the group has been invalidated.
func (r *Registry) Invalidations(groupName string) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g, ok := r.groups[groupName]; ok {
		return g.invalidations
	}
	return 0
}

// Len counts stored entries, expired ones included until the next Sweep.
func (r *Registry) Len(groupName string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if g, ok := r.groups[groupName]; ok {
		return len(g.entries)
	}
	return 0
}

// Sweep removes expired entries from every group and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for _, g := range r.groups {
		for key, e := range g.entries {
			if !now.Before(e.expiresAt) {
				delete(g.entries, key)
				removed++
			}
		}
	}
	return removed
}

// Remember returns the cached value for key or stores the result of load.
// A load error is returned as is and nothing is cached. A result loaded while the
// group was invalidated is returned but not cached.
func Remember[T any](r *Registry, groupName, key string, load func() (T, error)) (T, error) {
	if v, ok := r.Get(groupName, key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	gen := r.Invalidations(groupName)
	v, err := load()
	if err != nil {
		return v, err
	}
	r.setIfCurrent(groupName, key, v, gen)
	return v, nil
}
