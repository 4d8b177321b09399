package consts

import "time"

// Wire protocol limits.
const (
	// MaxFrameLength caps the declared length prefix of a single frame,
	// guarding against a malicious or corrupt length field forcing an
	// unbounded allocation.
	MaxFrameLength = 64 * 1024 * 1024

	// BufferSize64KB is a 64 KiB buffer size. No package in the module
	// references it; the frame codec allocates each payload buffer at
	// the frame's declared length.
	BufferSize64KB = 64 * 1024
)

// Heartbeat and queue tuning.
const (
	// HeartbeatInterval is how often the communication worker writes a
	// raw "." byte while blocked waiting for a synchronous run result.
	HeartbeatInterval = 2 * time.Second

	// GoalInboxSize and GoalOutboxSize bound the per-connection queues
	// between the communication worker and the goal worker.
	GoalInboxSize  = 4
	GoalOutboxSize = 64
)

// Defaults for server configuration, mirrored into internal/config.
const (
	// DefaultQueryTimeoutSeconds is the default value of the
	// query_timeout option; -1 means unbounded. Queries do not read the
	// option: each run/run_async command carries its own timeout.
	DefaultQueryTimeoutSeconds = -1

	// DefaultPendingConnections is the default value of the
	// pending_connections option. The listener does not pass it to
	// listen(2); the OS default backlog applies.
	DefaultPendingConnections = 5
)

// Health monitoring intervals, used by internal/listener's periodic
// health sweep.
const (
	DefaultHealthCheckInterval = 5 * time.Second
)
