// Package power keeps the machine awake while monitoring runs and
// watches for session lock and unlock.
package power

import "context"

// Blocker prevents the display and system from sleeping.
type Blocker interface {
	// Start engages the blocker. Calling it again is a no-op.
	Start(ctx context.Context)
	// Stop releases the blocker.
	Stop(ctx context.Context)
}

// LockWatcher reports session lock state transitions.
type LockWatcher interface {
	// Start begins watching. The callback receives true on lock and
	// false on unlock, edge-triggered.
	Start(ctx context.Context, onChange func(ctx context.Context, locked bool)) error
	Stop()
}
