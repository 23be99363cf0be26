package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// ReportRouter routes the three report kinds a heartbeat or side-channel
// RPC can carry — node (storage), layout, and command-queue — onto a
// DatanodeRecord's derived fields, idempotently: replaying the same report
// twice produces the same record state.
type ReportRouter struct {
	table   *NodeTable
	queue   *CommandQueue
	events  EventSink
	scm     ports.SCMContext
	layouts ports.LayoutVersionManager
	log     *logging.Logger
}

// NewReportRouter wires the collaborators a report needs: the table it
// writes into, the queue it may enqueue a finalize command onto, the
// event sink, and read-only access to leadership/layout state.
func NewReportRouter(table *NodeTable, queue *CommandQueue, events EventSink, scm ports.SCMContext, layouts ports.LayoutVersionManager, log *logging.Logger) *ReportRouter {
	return &ReportRouter{table: table, queue: queue, events: events, scm: scm, layouts: layouts, log: log}
}

// RouteNodeReport replaces the record's storage report lists wholesale and
// recomputes the derived healthy-volume / meta-volume counts.
func (r *ReportRouter) RouteNodeReport(id uuid.UUID, storageReports, metaStorageReports []cluster.StorageReport) error {
	return r.table.ApplyStorageReport(id, storageReports, metaStorageReports)
}

// RouteLayoutReport updates the record's layout versions and, when the
// cluster has crossed the MLV-equals-SLV finalization checkpoint and this
// datanode is still behind, enqueues a FinalizeNewLayoutVersionCommand.
// An SLV ahead of the SCM's own SLV is logged at error level and the
// datanode is kept regardless — it is never disconnected for this. An MLV
// at or ahead of the SCM's own MLV gets no finalize command and is not
// logged.
func (r *ReportRouter) RouteLayoutReport(ctx context.Context, id uuid.UUID, layout cluster.LayoutVersions) error {
	if err := r.table.ApplyLayoutReport(id, layout); err != nil {
		return err
	}

	if layout.SoftwareLayoutVersion > r.layouts.SoftwareLayoutVersion() {
		r.log.Error("datanode software layout version exceeds SCM's; it should never have been admitted",
			"node", id, "dn_slv", layout.SoftwareLayoutVersion, "scm_slv", r.layouts.SoftwareLayoutVersion())
	}

	checkpoint := r.scm.FinalizationCheckpoint()
	if checkpoint != cluster.FinalizationMLVEqualsSLV {
		return nil
	}
	if layout.MetadataLayoutVersion >= r.layouts.MetadataLayoutVersion() {
		return nil
	}

	term, err := r.scm.TermOfLeader()
	if err != nil || !r.scm.IsLeader() {
		r.log.Warn("skipping layout finalize command, not leader", "node", id)
		return nil
	}

	cmd := cluster.SCMCommand{
		Type: cluster.CommandFinalizeNewLayoutVersion,
		Term: term,
		Payload: cluster.FinalizeNewLayoutVersionPayload{
			SoftwareLayoutVersion: r.layouts.SoftwareLayoutVersion(),
		},
	}
	r.queue.Add(id, CommandQueueEntry{DNUuid: id, Type: cmd.Type, Term: cmd.Term, Payload: cmd.Payload})
	r.events.EmitCommand(ctx, id, cmd)
	return nil
}

// RouteCommandQueueReport merges the datanode-reported per-type pending
// counts with summary — the about-to-be-sent counts HeartbeatProcessor
// captured just before draining — and stores the combined view.
func (r *ReportRouter) RouteCommandQueueReport(ctx context.Context, id uuid.UUID, dnReported map[cluster.CommandType]int32, summary map[cluster.CommandType]int32) error {
	merged := make(map[cluster.CommandType]int32, len(dnReported)+len(summary))
	for k, v := range dnReported {
		merged[k] = v
	}
	for k, v := range summary {
		merged[k] += v
	}

	if err := r.table.SetCommandCounts(id, merged); err != nil {
		return err
	}
	r.events.EmitCommandCountUpdated(ctx, id)
	return nil
}
