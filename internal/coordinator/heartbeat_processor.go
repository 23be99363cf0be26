package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// HeartbeatRequest is everything a single heartbeat RPC carries. Layout and
// the datanode's own view of its operational state are sent on every
// heartbeat; CommandQueueReport is only present when the datanode chooses
// to report its locally-observed pending-command counts.
type HeartbeatRequest struct {
	Identity              cluster.DatanodeIdentity
	Layout                cluster.LayoutVersions
	DNOpState             cluster.OperationalState
	DNOpStateExpiryEpochSec int64
	ReadOnly              bool
	CommandQueueReport    map[cluster.CommandType]int32
}

// HeartbeatProcessor is the entry point for every datanode heartbeat. It
// updates liveness and layout, reconciles operational-state drift against
// leadership, drains the command outbox, and optionally folds in a
// command-queue report — in that order, per the ordering contract in
// SCMNodeManager.processHeartbeat.
type HeartbeatProcessor struct {
	table   *NodeTable
	queue   *CommandQueue
	health  *HealthStateMachine
	reports *ReportRouter
	events  EventSink
	scm     ports.SCMContext
	clock   ports.Clock
	metrics *Metrics
	log     *logging.Logger
}

// NewHeartbeatProcessor wires every collaborator the processing steps
// touch.
func NewHeartbeatProcessor(table *NodeTable, queue *CommandQueue, health *HealthStateMachine, reports *ReportRouter, events EventSink, scm ports.SCMContext, clock ports.Clock, metrics *Metrics, log *logging.Logger) *HeartbeatProcessor {
	return &HeartbeatProcessor{
		table:   table,
		queue:   queue,
		health:  health,
		reports: reports,
		events:  events,
		scm:     scm,
		clock:   clock,
		metrics: metrics,
		log:     log,
	}
}

// Process runs the full heartbeat pipeline and returns the drained
// commands. It never fails the caller — an unregistered sender is logged
// and counted, and an empty command list is returned.
func (p *HeartbeatProcessor) Process(ctx context.Context, req HeartbeatRequest) []CommandQueueEntry {
	id := req.Identity.UUID

	if _, err := p.table.Get(id); err != nil {
		p.metrics.HeartbeatsFailed.Inc()
		p.log.Warn("heartbeat from unregistered datanode", "node", id)
		return nil
	}

	now := p.clock.NowMillis()
	if err := p.table.UpdateHeartbeat(id, now, req.Layout); err != nil {
		p.metrics.HeartbeatsFailed.Inc()
		return nil
	}
	p.health.OnHeartbeatReceived(ctx, id, req.ReadOnly)

	if err := p.reports.RouteLayoutReport(ctx, id, req.Layout); err != nil {
		p.log.Warn("layout report routing failed on heartbeat", "node", id, "error", err)
	}

	p.reconcileOperationalState(ctx, id, req.DNOpState, req.DNOpStateExpiryEpochSec)

	summary, commands := p.queue.PeekAndDrain(id)

	if req.CommandQueueReport != nil {
		if err := p.reports.RouteCommandQueueReport(ctx, id, req.CommandQueueReport, summary); err != nil {
			p.log.Warn("command queue report routing failed", "node", id, "error", err)
		}
	}

	p.metrics.HeartbeatsProcessed.Inc()
	return commands
}

// reconcileOperationalState implements the leader/follower drift rule: on
// a leader, the SCM's stored pair is authoritative and is never
// overwritten by what the datanode reports — a correcting command is
// stamped with the current term and queued instead. On a follower, there
// is no authority to defend, so the stored pair is simply replaced with
// the datanode's report and no command is queued.
func (p *HeartbeatProcessor) reconcileOperationalState(ctx context.Context, id uuid.UUID, dnOpState cluster.OperationalState, dnExpiry int64) {
	rec, err := p.table.Get(id)
	if err != nil {
		return
	}

	scmStatus := rec.Status()
	dnStatus := cluster.NodeStatus{OperationalState: dnOpState, OpStateExpiryEpochSec: dnExpiry}

	if !scmStatus.Differs(dnStatus) {
		return
	}

	if p.scm.IsLeader() {
		term, termErr := p.scm.TermOfLeader()
		if termErr != nil {
			p.log.Warn("skipping operational-state command, lost leadership while stamping", "node", id)
			return
		}
		cmd := cluster.SCMCommand{
			Type: cluster.CommandSetNodeOperationalState,
			Term: term,
			Payload: cluster.SetNodeOperationalStatePayload{
				OperationalState:      scmStatus.OperationalState,
				OpStateExpiryEpochSec: scmStatus.OpStateExpiryEpochSec,
			},
		}
		p.queue.Add(id, CommandQueueEntry{DNUuid: id, Type: cmd.Type, Term: cmd.Term, Payload: cmd.Payload})
		p.events.EmitCommand(ctx, id, cmd)
		return
	}

	_ = p.table.SetPersistedOpState(id, dnOpState, dnExpiry)
}
