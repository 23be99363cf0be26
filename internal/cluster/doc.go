// Package cluster is the vocabulary layer shared by every package in this
// module: it has no dependency on coordinator, ports, or any transport.
//
// Layout
//
//	internal/cluster    -- this package: DatanodeRecord, NodeStatus, SCMCommand
//	internal/ports      -- interfaces the coordinator consumes but does not own
//	internal/coordinator -- NodeTable, HealthStateMachine, CommandQueue,
//	                         HeartbeatProcessor, Registrar, ReportRouter,
//	                         StatsView, EventBridge
//	internal/leader      -- an SCMContext implementation backed by etcd
//	internal/eventbus    -- an EventPublisher implementation backed by NATS
//	internal/topology     -- a NetworkTopology implementation
//	internal/clock        -- real and manual Clock implementations
//	internal/config       -- viper-backed configuration loading
//	internal/logging      -- zerolog wrapper
//	cmd/scmcore           -- wiring entrypoint and admin HTTP surface
//
// Registry lifecycle
//
//	register()                         ReportRouter.RouteXxxReport()
//	        |                                   ^
//	        v                                   |
//	   NodeTable.Add ------------------> NodeTable.Update
//	        ^                                   ^
//	        |                                   |
//	  Registrar.Register          HeartbeatProcessor.Process
//	        ^                                   ^
//	        |                                   |
//	   [datanode joins]                [datanode heartbeats]
//
// A DatanodeRecord's Health field is only ever set by HealthStateMachine:
// its periodic scan demotes by heartbeat age, and a received heartbeat
// resets the node to HEALTHY, or to HEALTHY_READONLY when the heartbeat
// reports the datanode as read-only. Every read path hands out
// DatanodeRecord.Clone() results; only NodeTable holds a mutable original.
package cluster
