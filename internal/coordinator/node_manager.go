package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// NodeManagerConfig is the subset of the registry's configuration keys
// NodeManager itself needs at construction time.
type NodeManagerConfig struct {
	ClusterID                  string
	ScmID                      string
	UseHostname                bool
	PipelinesPerMetadataVolume int
	HeavyNodePipelineLimit     int
	Health                     HealthThresholds
}

// CoreVersion is the wire-stable version string reported by GetVersion.
const CoreVersion = "1"

// VersionResponse is the shape-stable reply to a getVersion call: a
// datanode (or an operator tool) uses this to confirm it is talking to a
// compatible registry before it ever registers.
type VersionResponse struct {
	Version   string
	ScmID     string
	ClusterID string
}

// Collaborators bundles the external ports NodeManager wires its
// components to. Every field is required; a missing one is a programmer
// error that surfaces as a nil-pointer panic the first time the
// corresponding component is exercised, not a runtime condition
// NewNodeManager is expected to pre-validate.
type Collaborators struct {
	Topology  ports.NetworkTopology
	Resolver  ports.NodeResolver
	Layouts   ports.LayoutVersionManager
	SCM       ports.SCMContext
	Clock     ports.Clock
	Pipelines ports.PipelineManager
	Publisher ports.EventPublisher
}

// NodeManager is the single entry point the RPC layer, the admin HTTP
// surface, and the scanner all drive. Its lifecycle is init -> run ->
// close, mirroring the "global singleton state" design note: this package
// keeps no mutable package-level state, only what a NodeManager instance
// holds.
type NodeManager struct {
	Table     *NodeTable
	Queue     *CommandQueue
	Health    *HealthStateMachine
	Heartbeat *HeartbeatProcessor
	Registrar *Registrar
	Reports   *ReportRouter
	Stats     *StatsView
	Events    *EventBridge
	Metrics   *Metrics

	clusterID string
	scmID     string
	log       *logging.Logger
}

// NewNodeManager wires every component together: Registrar
// and HeartbeatProcessor both write through NodeTable and CommandQueue;
// HealthStateMachine and ReportRouter both publish through the same
// EventBridge so subscribers see one consistent event stream.
func NewNodeManager(cfg NodeManagerConfig, collab Collaborators, log *logging.Logger) *NodeManager {
	table := NewNodeTable()
	queue := NewCommandQueue()
	metrics := NewMetrics()
	events := NewEventBridge(collab.Publisher, queue, log)

	health := NewHealthStateMachine(table, collab.Clock, cfg.Health, events, log)
	reports := NewReportRouter(table, queue, events, collab.SCM, collab.Layouts, log)
	registrar := NewRegistrar(table, collab.Topology, collab.Resolver, collab.Layouts, events, cfg.ClusterID, cfg.UseHostname, log)
	heartbeat := NewHeartbeatProcessor(table, queue, health, reports, events, collab.SCM, collab.Clock, metrics, log)
	stats := NewStatsView(table, collab.Pipelines, cfg.PipelinesPerMetadataVolume, cfg.HeavyNodePipelineLimit)

	return &NodeManager{
		Table:     table,
		Queue:     queue,
		Health:    health,
		Heartbeat: heartbeat,
		Registrar: registrar,
		Reports:   reports,
		Stats:     stats,
		Events:    events,
		Metrics:   metrics,
		clusterID: cfg.ClusterID,
		scmID:     cfg.ScmID,
		log:       log,
	}
}

// GetVersion reports the registry's wire-stable identity, the same triple
// a datanode checks before it ever attempts to register.
func (m *NodeManager) GetVersion() VersionResponse {
	return VersionResponse{
		Version:   CoreVersion,
		ScmID:     m.scmID,
		ClusterID: m.clusterID,
	}
}

// Run starts the health scanner. The registry is usable for Register and
// ProcessHeartbeat calls before Run is ever called; Run only matters for
// the time-driven demotion of stale nodes.
func (m *NodeManager) Run(ctx context.Context) {
	m.Health.Start(ctx)
}

// Close stops the scanner. There is no management bean or metrics
// exporter owned by this core to unregister or flush — those are external
// collaborators — so Close's only remaining duty is to release the
// scanner goroutine.
func (m *NodeManager) Close() {
	m.Health.Stop()
}

// Register delegates to Registrar.
func (m *NodeManager) Register(ctx context.Context, req RegisterRequest) RegisterResponse {
	return m.Registrar.Register(ctx, req)
}

// ProcessHeartbeat delegates to HeartbeatProcessor.
func (m *NodeManager) ProcessHeartbeat(ctx context.Context, req HeartbeatRequest) []CommandQueueEntry {
	return m.Heartbeat.Process(ctx, req)
}

// GetNodeStatus returns the current derived status for a node, or
// ErrNotFound. This is the admin-facing setNodeOperationalState/status
// round trip's read half.
func (m *NodeManager) GetNodeStatus(id uuid.UUID) (cluster.NodeStatus, error) {
	rec, err := m.Table.Get(id)
	if err != nil {
		return cluster.NodeStatus{}, err
	}
	return rec.Status(), nil
}

// SetNodeOperationalState is the explicit admin API call; unlike the
// heartbeat-driven reconciliation path, NotFound propagates straight to
// the caller here, per the error-handling policy's carve-out for admin
// calls.
func (m *NodeManager) SetNodeOperationalState(id uuid.UUID, opState cluster.OperationalState, expiryEpochSec int64) error {
	return m.Table.SetPersistedOpState(id, opState, expiryEpochSec)
}
