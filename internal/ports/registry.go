package ports

import (
	"sort"
	"sync"
)

// Registry records which owner holds each port for the lifetime of a run.
// Ports stay reserved until Release so a second node in the same process
// never picks a port the first one has not bound yet.
type Registry struct {
	mu       sync.Mutex
	reserved map[uint16]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{reserved: make(map[uint16]string)}
}

// DefaultRegistry is shared by every allocator in the process.
var DefaultRegistry = NewRegistry()

// heldByOther reports the owner of port when it is not owner. Caller holds mu.
func (r *Registry) heldByOther(port uint16, owner string) (string, bool) {
	holder, ok := r.reserved[port]
	if !ok || holder == owner {
		return "", false
	}
	return holder, true
}

// reserve replaces owner's reservation with ports. Caller holds mu.
func (r *Registry) reserve(owner string, ports []uint16) {
	for p, holder := range r.reserved {
		if holder == owner {
			delete(r.reserved, p)
		}
	}
	for _, p := range ports {
		r.reserved[p] = owner
	}
}

// Release frees every port held by owner.
func (r *Registry) Release(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for p, holder := range r.reserved {
		if holder == owner {
			delete(r.reserved, p)
		}
	}
}

// Reserved returns the ports held by owner, sorted.
func (r *Registry) Reserved(owner string) []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint16
	for p, holder := range r.reserved {
		if holder == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
