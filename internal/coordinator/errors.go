package coordinator

import "errors"

// Sentinel errors returned by NodeTable and the components built on top of
// it. Callers compare with errors.Is; ErrNotLeader lives in internal/ports
// since it is a property of leadership, not of the registry. A layout
// mismatch at registration is never one of these — it is an explicit
// RegisterErrorCode in the response, not an error value. A PipelineManager
// miss is reported as ok=false from PipelineNodes, not as a sentinel, since
// PeerList drops it silently rather than propagating it.
var (
	ErrNotFound      = errors.New("coordinator: node not found")
	ErrAlreadyExists = errors.New("coordinator: node already exists")
)
