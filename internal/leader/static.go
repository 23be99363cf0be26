package leader

import (
	"sync"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/ports"
)

// Static is a ports.SCMContext fake for tests and single-node deployments
// that never campaign: leadership and term are set directly.
type Static struct {
	mu           sync.Mutex
	leader       bool
	term         int64
	finalization cluster.FinalizationCheckpoint
}

// NewStatic builds a context pinned to the given leadership/term.
func NewStatic(isLeader bool, term int64) *Static {
	return &Static{leader: isLeader, term: term}
}

func (s *Static) IsLeader() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leader
}

func (s *Static) TermOfLeader() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.leader {
		return 0, ports.ErrNotLeader
	}
	return s.term, nil
}

func (s *Static) FinalizationCheckpoint() cluster.FinalizationCheckpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalization
}

// SetLeader flips leadership, optionally bumping the term.
func (s *Static) SetLeader(isLeader bool, term int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leader = isLeader
	s.term = term
}

// SetFinalizationCheckpoint advances the reported checkpoint.
func (s *Static) SetFinalizationCheckpoint(c cluster.FinalizationCheckpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalization = c
}
