// Package securemem provides memory-protected storage for the shared
// password using memguard to prevent it from being read via debugger,
// memory dump, or swap. Importing cmd/queryserverd's main package is
// enough to run this init; main still calls Cleanup explicitly during
// shutdown since init-time registration and shutdown-time purge are
// different lifecycle events.
package securemem

// init initializes memguard when the package is imported.
func init() {
	Init()
}
