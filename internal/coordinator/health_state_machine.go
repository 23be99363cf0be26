package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// HealthThresholds configures the HEALTHY -> STALE -> DEAD scanner.
// Stale must be strictly less than dead; NewHealthStateMachine panics
// otherwise, since a misconfigured ordering would make DEAD unreachable or
// skip STALE entirely.
type HealthThresholds struct {
	StaleThresholdMillis int64
	DeadThresholdMillis  int64
	ScanIntervalMillis    int64
}

// HealthStateMachine drives every datanode's liveness through
// HEALTHY/HEALTHY_READONLY/STALE/DEAD by comparing each record's
// lastHeartbeatMillis against configured thresholds on a periodic scan.
// Heartbeat reception itself resets a node straight to HEALTHY; the
// scanner only ever demotes.
//
// Same Start/Stop/pause shape as the consecutive-failure health monitor
// this core's liveness tracking grew out of, generalized from
// consecutive-HTTP-failure tracking to heartbeat-age tracking against
// the injected Clock.
type HealthStateMachine struct {
	table      *NodeTable
	clock      ports.Clock
	thresholds HealthThresholds
	events     EventSink
	log        *logging.Logger

	mu      sync.Mutex
	paused  bool
	skipped int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthStateMachine wires the scanner; it does not start it.
func NewHealthStateMachine(table *NodeTable, clock ports.Clock, thresholds HealthThresholds, events EventSink, log *logging.Logger) *HealthStateMachine {
	if thresholds.StaleThresholdMillis >= thresholds.DeadThresholdMillis {
		panic("coordinator: staleThresholdMillis must be < deadThresholdMillis")
	}
	return &HealthStateMachine{
		table:      table,
		clock:      clock,
		thresholds: thresholds,
		events:     events,
		log:        log,
	}
}

// Start launches the periodic scanner goroutine. Stop must be called to
// release it.
func (h *HealthStateMachine) Start(ctx context.Context) {
	scanCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	interval := time.Duration(h.thresholds.ScanIntervalMillis) * time.Millisecond
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				h.Tick(scanCtx)
			}
		}
	}()
}

// Stop cancels the scanner goroutine and waits for it to exit.
func (h *HealthStateMachine) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

// Pause suspends scanning; each missed tick while paused increments
// SkippedChecks instead of being silently dropped, so tests can assert the
// scanner noticed it was asked to stand down.
func (h *HealthStateMachine) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = true
}

// Resume re-enables scanning.
func (h *HealthStateMachine) Resume() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = false
}

// SkippedChecks reports how many ticks fired while paused.
func (h *HealthStateMachine) SkippedChecks() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skipped
}

// Tick runs one scan pass. Exported so tests can drive the scanner
// deterministically without waiting on the real ticker.
func (h *HealthStateMachine) Tick(ctx context.Context) {
	h.mu.Lock()
	if h.paused {
		h.skipped++
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	now := h.clock.NowMillis()
	for _, rec := range h.table.All() {
		h.evaluate(ctx, rec, now)
	}
}

func (h *HealthStateMachine) evaluate(ctx context.Context, rec *cluster.DatanodeRecord, now int64) {
	id := rec.Identity.UUID
	age := now - rec.LastHeartbeatMillis

	next := rec.Health
	switch rec.Health {
	case cluster.HealthHealthy, cluster.HealthHealthyReadOnly:
		if age > h.thresholds.DeadThresholdMillis {
			next = cluster.HealthDead
		} else if age > h.thresholds.StaleThresholdMillis {
			next = cluster.HealthStale
		}
	case cluster.HealthStale:
		if age > h.thresholds.DeadThresholdMillis {
			next = cluster.HealthDead
		}
	case cluster.HealthDead:
		// Monotonic: only a heartbeat (OnHeartbeatReceived) moves a DEAD
		// node out of DEAD; the scanner never promotes.
	}

	if next == rec.Health {
		return
	}
	if err := h.table.SetHealth(id, next); err != nil {
		h.log.Warn("health transition on vanished node", "node", id, "error", err)
		return
	}

	switch next {
	case cluster.HealthStale:
		h.events.EmitNodeStale(ctx, id)
	case cluster.HealthDead:
		h.events.EmitNodeDead(ctx, id)
	case cluster.HealthHealthy:
		h.events.EmitNodeHealthy(ctx, id)
	}
}

// OnHeartbeatReceived resets a node to HEALTHY, or HEALTHY_READONLY when the
// heartbeat itself reports the datanode as read-only, including a reset
// from a previously DEAD node; it fires the recovery event whenever the
// node moves into either of those two states from something else.
// HEALTHY_READONLY's only entry point, and the only way from it back to
// HEALTHY, is here — the scanner in evaluate never assigns it, only
// demotes out of it to STALE or DEAD — matching the
// "entered when a DN reports itself read-only during upgrade, exit driven
// by heartbeat content" rule. HeartbeatProcessor calls this before
// touching the command queue.
func (h *HealthStateMachine) OnHeartbeatReceived(ctx context.Context, id uuid.UUID, readOnly bool) {
	rec, err := h.table.Get(id)
	if err != nil {
		return
	}

	target := cluster.HealthHealthy
	if readOnly {
		target = cluster.HealthHealthyReadOnly
	}
	if rec.Health == target {
		return
	}
	if err := h.table.SetHealth(id, target); err != nil {
		return
	}
	h.events.EmitNodeHealthy(ctx, id)
}
