package coordinator

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// recordingEventSink captures every Emit call for assertions instead of
// publishing anywhere.
type recordingEventSink struct {
	mu       sync.Mutex
	newNode  []uuid.UUID
	addrUpd  []uuid.UUID
	stale    []uuid.UUID
	dead     []uuid.UUID
	healthy  []uuid.UUID
	commands []cluster.SCMCommand
	countUpd []uuid.UUID
}

func newRecordingEventSink() *recordingEventSink { return &recordingEventSink{} }

func (s *recordingEventSink) EmitNewNode(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newNode = append(s.newNode, id)
}

func (s *recordingEventSink) EmitNodeAddressUpdate(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addrUpd = append(s.addrUpd, id)
}

func (s *recordingEventSink) EmitNodeStale(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = append(s.stale, id)
}

func (s *recordingEventSink) EmitNodeDead(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead = append(s.dead, id)
}

func (s *recordingEventSink) EmitNodeHealthy(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = append(s.healthy, id)
}

func (s *recordingEventSink) EmitCommand(_ context.Context, _ uuid.UUID, cmd cluster.SCMCommand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func (s *recordingEventSink) EmitCommandCountUpdated(_ context.Context, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countUpd = append(s.countUpd, id)
}

// fakeSCM is a ports.SCMContext test double with mutable leader/term state.
type fakeSCM struct {
	leader      bool
	term        int64
	checkpoint  cluster.FinalizationCheckpoint
	termErr     error
}

func (f *fakeSCM) IsLeader() bool { return f.leader }

func (f *fakeSCM) TermOfLeader() (int64, error) {
	if f.termErr != nil {
		return 0, f.termErr
	}
	if !f.leader {
		return 0, ports.ErrNotLeader
	}
	return f.term, nil
}

func (f *fakeSCM) FinalizationCheckpoint() cluster.FinalizationCheckpoint { return f.checkpoint }

// fakeTopology always resolves to the configured location and, unless
// addFails is set, always succeeds at Add.
type fakeTopology struct {
	location string
	ok       bool
	addFails bool
}

func (f fakeTopology) Resolve(cluster.DatanodeIdentity) (string, bool) { return f.location, f.ok }

func (f fakeTopology) Add(cluster.DatanodeIdentity, string) bool { return !f.addFails }

// fakeResolver passes hostname/IP straight through.
type fakeResolver struct{}

func (fakeResolver) Resolve(host, ip string) (string, string) { return host, ip }

// fakeLayouts reports a fixed SCM software/metadata layout version pair.
type fakeLayouts struct {
	slv int
	mlv int
}

func (f fakeLayouts) SoftwareLayoutVersion() int { return f.slv }
func (f fakeLayouts) MetadataLayoutVersion() int { return f.mlv }

// fakePipelines is a ports.PipelineManager test double backed by a map.
type fakePipelines struct {
	nodes map[string][]uuid.UUID
}

func (f fakePipelines) PipelineExists(id string) bool {
	_, ok := f.nodes[id]
	return ok
}

func (f fakePipelines) PipelineNodes(id string) ([]uuid.UUID, bool) {
	n, ok := f.nodes[id]
	return n, ok
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, zerolog.Disabled)
}
