// Package topology provides a ports.NetworkTopology implementation: a
// static rack-awareness table keyed by the address a datanode registers
// with, standing in for the cluster-tree rack resolver HDDS wires through
// its NetworkTopologyCluster. Resolution order is IP, then hostname.
package topology

import (
	"sync"

	"github.com/dreamware/scmcore/internal/cluster"
)

// StaticTopology resolves a datanode's rack path from a fixed table built
// at construction time, plus any mappings added later via Set.
type StaticTopology struct {
	mu        sync.RWMutex
	locations map[string]string
	fallback  string
}

// NewStaticTopology builds a topology seeded with the given address ->
// rack-path table. fallback is returned (ok=true) when neither the DN's
// hostname nor its IP has an entry and fallback is non-empty; otherwise
// Resolve reports ok=false, leaving the caller's "unresolved is allowed"
// fallback to kick in.
func NewStaticTopology(seed map[string]string, fallback string) *StaticTopology {
	locations := make(map[string]string, len(seed))
	for k, v := range seed {
		locations[k] = v
	}
	return &StaticTopology{locations: locations, fallback: fallback}
}

// Resolve satisfies ports.NetworkTopology.
func (t *StaticTopology) Resolve(identity cluster.DatanodeIdentity) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if loc, ok := t.locations[identity.IPAddress]; ok {
		return loc, true
	}
	if loc, ok := t.locations[identity.HostName]; ok {
		return loc, true
	}
	if t.fallback != "" {
		return t.fallback, true
	}
	return "", false
}

// Set records (or overwrites) the rack path for an address.
func (t *StaticTopology) Set(address, location string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locations[address] = location
}

// Add satisfies ports.NetworkTopology: it records location under both the
// identity's hostname and IP so a later Resolve finds it directly, and
// reports whether the node now has a parent. A flat rack table has no real
// tree to fail to insert into; the only genuine failure is an empty
// location, which the caller is expected to have already defaulted away.
func (t *StaticTopology) Add(identity cluster.DatanodeIdentity, location string) bool {
	if location == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if identity.IPAddress != "" {
		t.locations[identity.IPAddress] = location
	}
	if identity.HostName != "" {
		t.locations[identity.HostName] = location
	}
	return true
}
