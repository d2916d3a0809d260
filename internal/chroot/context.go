// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"context"
	"fmt"

	"github.com/hwprov/hwprov/internal/rollback"
)

const (
	// StateEmpty is a Context whose staging has not completed.
	StateEmpty State = iota
	// StateStaged is a fully staged Context.
	StateStaged
	// StateTornDown is a Context whose ledger has been drained.
	StateTornDown
)

type (
	// State is the lifecycle position of a staged chroot.
	State int

	// Context is a chroot staged for installation. It records what staging
	// changed and owns the ledger that reverts those changes.
	Context struct {
		// Dir is the chroot root.
		Dir string
		// Scratch holds the displaced identity files.
		Scratch string
		// Overwrites lists the chroot paths whose original content is parked
		// in Scratch.
		Overwrites []string
		// Injected lists files copied into the chroot.
		Injected []string
		// Mounts lists mount points inside the chroot.
		Mounts []string

		state  State
		ledger *rollback.Ledger
	}
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStaged:
		return "staged"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// State returns the lifecycle state.
func (c *Context) State() State {
	return c.state
}

// Pending returns the number of undo actions not yet run.
func (c *Context) Pending() int {
	return c.ledger.Len()
}

// Teardown runs every registered undo in reverse order. It continues past
// failures and returns them joined; calling it again is a no-op.
func (c *Context) Teardown(ctx context.Context) error {
	err := c.ledger.RunAll(ctx)
	c.state = StateTornDown
	return err
}
