// Package leader provides a ports.SCMContext implementation backed by an
// etcd election (go.etcd.io/etcd/client/v3/concurrency) — campaigning
// for and holding leadership rather than just keeping a lease alive.
package leader

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// ElectionContext campaigns for a single etcd election key and exposes the
// result as a ports.SCMContext. isLeader flips the moment Campaign
// returns; termOfLeader is a monotonically increasing counter bumped on
// every successful campaign, standing in for the etcd revision a real
// term would be derived from.
type ElectionContext struct {
	client   *clientv3.Client
	election *concurrency.Election
	session  *concurrency.Session

	isLeader int32
	term     int64

	mu           sync.Mutex
	finalization cluster.FinalizationCheckpoint

	log *logging.Logger
}

// NewElectionContext opens a session against electionKey and returns a
// context that is not yet campaigning; call Campaign to start.
func NewElectionContext(client *clientv3.Client, electionKey string, log *logging.Logger) (*ElectionContext, error) {
	session, err := concurrency.NewSession(client)
	if err != nil {
		return nil, err
	}
	return &ElectionContext{
		client:   client,
		election: concurrency.NewElection(session, electionKey),
		session:  session,
		log:      log,
	}, nil
}

// Campaign blocks until this process wins the election, then marks it
// leader and bumps the term. Callers typically run this in a goroutine and
// loop: a lost session (the keep-alive channel closing) should trigger a
// fresh NewElectionContext and re-Campaign.
func (e *ElectionContext) Campaign(ctx context.Context, value string) error {
	if err := e.election.Campaign(ctx, value); err != nil {
		return err
	}
	atomic.StoreInt32(&e.isLeader, 1)
	atomic.AddInt64(&e.term, 1)
	e.log.Info("won leader election", "term", atomic.LoadInt64(&e.term))
	return nil
}

// Resign gives up leadership voluntarily, e.g. on graceful shutdown.
func (e *ElectionContext) Resign(ctx context.Context) error {
	atomic.StoreInt32(&e.isLeader, 0)
	return e.election.Resign(ctx)
}

// OnSessionLost should be wired to the session's Done() channel; it
// demotes this context the moment the etcd lease backing the election
// expires, e.g. on a network partition.
func (e *ElectionContext) OnSessionLost() {
	atomic.StoreInt32(&e.isLeader, 0)
	e.log.Warn("etcd election session lost, demoting to follower")
}

// IsLeader satisfies ports.SCMContext.
func (e *ElectionContext) IsLeader() bool {
	return atomic.LoadInt32(&e.isLeader) == 1
}

// TermOfLeader satisfies ports.SCMContext; it returns ErrNotLeader when
// this process is not currently the leader, matching the
// NotLeaderException surfaced from the Java consensus context.
func (e *ElectionContext) TermOfLeader() (int64, error) {
	if !e.IsLeader() {
		return 0, ports.ErrNotLeader
	}
	return atomic.LoadInt64(&e.term), nil
}

// FinalizationCheckpoint satisfies ports.SCMContext.
func (e *ElectionContext) FinalizationCheckpoint() cluster.FinalizationCheckpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalization
}

// SetFinalizationCheckpoint advances the upgrade-finalization checkpoint
// this context reports; called by whatever drives the cluster's software
// upgrade workflow, not by anything in this package.
func (e *ElectionContext) SetFinalizationCheckpoint(c cluster.FinalizationCheckpoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finalization = c
}

// Close releases the etcd session.
func (e *ElectionContext) Close() error {
	return e.session.Close()
}
