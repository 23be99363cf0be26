// Package ports declares the interfaces the coordinator consumes but does
// not own: consensus leadership, network topology resolution, pipeline and
// layout-version managers, a clock, an event sink, and a node resolver.
// Implementations live in internal/leader (etcd-backed and static),
// internal/topology, internal/clock, internal/eventbus (NATS-backed and
// in-memory) and internal/resolver; the pipeline and layout-version
// managers have only the stand-ins in cmd/scmcore. Tests use fakes.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
)

// ErrNotLeader is returned by SCMContext-dependent operations when the
// calling node is not the current Raft/etcd leader. HeartbeatProcessor and
// ReportRouter treat it as benign: the command is dropped and a warning is
// logged, never escalated.
var ErrNotLeader = errors.New("scmcore: not leader")

// SCMContext reports this node's standing in cluster consensus. Wraps
// whatever real consensus layer is in play (etcd election here) so the
// coordinator package never imports an election library directly.
type SCMContext interface {
	IsLeader() bool
	TermOfLeader() (int64, error)
	FinalizationCheckpoint() cluster.FinalizationCheckpoint
}

// NetworkTopology resolves a datanode's rack/node-group location and
// tracks tree membership. HDDS calls this the cluster tree: Resolve is a
// best-effort hint with no side effect, while Add performs the actual
// insertion and is the only source of truth for whether a node ends up
// with a topology parent.
type NetworkTopology interface {
	// Resolve returns the network location string for the given identity,
	// e.g. "/rack1/nodegroup2". Returns ok=false if the topology has no
	// opinion, which is a normal, allowed outcome — the caller substitutes
	// its own default location before calling Add, rather than treating
	// an unresolved rack path as a membership failure.
	Resolve(identity cluster.DatanodeIdentity) (location string, ok bool)

	// Add inserts identity into the tree under location and reports
	// whether the resulting node has a topology parent. It always
	// succeeds for a well-formed, non-empty location; ok=false signals a
	// genuine tree-insertion failure, independent of whether Resolve had
	// an opinion about the rack path.
	Add(identity cluster.DatanodeIdentity, location string) (ok bool)
}

// PipelineManager reports whether a pipeline ID is currently known, and
// which datanodes belong to it. PipelineNodes backs StatsView's peer-list
// computation, which drops a pipeline reported as unknown (ok=false)
// silently, never escalating it. Nothing in this module calls
// PipelineExists.
type PipelineManager interface {
	PipelineExists(pipelineID string) bool
	PipelineNodes(pipelineID string) ([]uuid.UUID, bool)
}

// LayoutVersionManager reports the SCM's own software and metadata layout
// versions, the high-water marks every datanode's self-reported versions
// are compared against.
type LayoutVersionManager interface {
	SoftwareLayoutVersion() int
	MetadataLayoutVersion() int
}

// Clock abstracts time so HealthStateMachine's scanner is deterministically
// testable with a manual-clock fixture in tests.
type Clock interface {
	NowMillis() int64
}

// EventTopic names a class of event published through EventPublisher.
type EventTopic string

const (
	TopicNewNode               EventTopic = "NEW_NODE"
	TopicNodeAddressUpdate     EventTopic = "NODE_ADDRESS_UPDATE"
	TopicNodeStale             EventTopic = "NODE_STALE"
	TopicNodeDead              EventTopic = "NODE_DEAD"
	TopicNodeHealthy           EventTopic = "NODE_HEALTHY"
	TopicDatanodeCommand       EventTopic = "DATANODE_COMMAND"
	TopicCommandCountUpdated   EventTopic = "DATANODE_COMMAND_COUNT_UPDATED"
	TopicCommandForDatanode    EventTopic = "COMMAND_FOR_DATANODE"
)

// Event is the payload EventBridge hands to EventPublisher.
type Event struct {
	Topic     EventTopic
	NodeUUID  uuid.UUID
	Command   *cluster.SCMCommand
	NewStatus *cluster.NodeStatus
}

// EventPublisher is the outbound event sink EventBridge publishes
// through. The NATS-backed implementation lives in internal/eventbus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NodeResolver turns a registering datanode's claimed hostname/IP into
// whatever canonical form the cluster uses before it is indexed. The one
// implementation in this module, resolver.Passthrough, returns both
// strings unchanged.
type NodeResolver interface {
	Resolve(hostName, ipAddress string) (resolvedHost, resolvedIP string)
}
