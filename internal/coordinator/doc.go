// Package coordinator implements the datanode registry and command
// dispatch core of a cluster Storage Container Manager: the authoritative
// in-memory record of every datanode, the health state machine that
// demotes unreachable ones, the per-datanode outbound command queue, and
// the report-ingest and statistics paths built on top of them.
//
// # Overview
//
// NodeManager is the single entry point everything else in this package
// is wired through. RPC workers call Register and ProcessHeartbeat
// concurrently; a single scanner goroutine drives HealthStateMachine;
// event subscribers run on whatever dispatcher ports.EventPublisher uses.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────┐
//	│                        NodeManager                         │
//	├───────────────────────────────────────────────────────────┤
//	│  NodeTable          -- identity -> record, + secondary     │
//	│                        indexes (address, opstate, health)  │
//	│  CommandQueue       -- per-DN FIFO outbox                  │
//	│  HealthStateMachine -- periodic scanner, heartbeat-age      │
//	│                        driven HEALTHY/STALE/DEAD             │
//	│  HeartbeatProcessor -- per-heartbeat pipeline                │
//	│  Registrar          -- first-contact / address-change        │
//	│  ReportRouter       -- node/layout/command-queue reports      │
//	│  StatsView          -- read-only aggregates                   │
//	│  EventBridge         -- publisher + CommandForDatanode sink    │
//	└───────────────────────────────────────────────────────────┘
//
// # Data flow
//
//	DN -> RPC -> HeartbeatProcessor -> (NodeTable, HealthStateMachine,
//	       CommandQueue) -> command list -> DN
//	DN -> Registrar -> NodeTable -> EventBridge
//	scanner -> HealthStateMachine -> EventBridge (state-change events)
//
// # Concurrency model
//
// NodeTable.mu guards the primary map together with the opstate/health
// indexes, since registration and updates must keep all three consistent
// in one critical section. The address index has its own lock (addrMu)
// so an address rename never has to nest under the primary lock.
// CommandQueue has its own lock too, and PeekAndDrain holds it for both
// the summary read and the drain so a caller can never observe a command
// enqueued between the two.
//
// Every read path — NodeTable.Get, All, ListByStatus, LookupByAddress —
// returns a defensive copy. Callers outside this package can never
// observe or mutate a table's own state. Counts and listings are
// explicitly snapshot-at-read: they may drift between two calls, which is
// documented behavior, not a bug.
//
// # Lifecycle
//
// A NodeManager's lifecycle is NewNodeManager (init) -> Run (start the
// scanner) -> Close (stop it). There is no package-level state; every
// method hangs off an instance.
package coordinator
