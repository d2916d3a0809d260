// SPDX-License-Identifier: MPL-2.0

package rollback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type (
	// UndoFunc reverts one forward side effect.
	UndoFunc func(ctx context.Context) error

	// Ledger is an ordered list of undo actions. The zero value is not usable;
	// construct with New.
	Ledger struct {
		mu      sync.Mutex
		actions []action
		seq     int
		logger  *slog.Logger
	}

	action struct {
		order int
		name  string
		undo  UndoFunc
	}

	// UndoError reports a single undo action that failed during RunAll.
	UndoError struct {
		Name string
		Err  error
	}
)

// New creates an empty ledger. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Error implements the error interface.
func (e *UndoError) Error() string {
	return fmt.Sprintf("undo %q: %v", e.Name, e.Err)
}

// Unwrap returns the underlying undo failure.
func (e *UndoError) Unwrap() error {
	return e.Err
}

// Register appends an undo action. The name only appears in logs and errors.
func (l *Ledger) Register(name string, undo UndoFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	l.actions = append(l.actions, action{order: l.seq, name: name, undo: undo})
}

// Len returns the number of pending undo actions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.actions)
}

// RunAll executes every pending undo action, most recently registered first,
// and empties the ledger. Failures do not stop the drain; they are joined into
// the returned error. Calling RunAll on an empty ledger is a no-op.
func (l *Ledger) RunAll(ctx context.Context) error {
	l.mu.Lock()
	pending := l.actions
	l.actions = nil
	l.mu.Unlock()

	var errs []error
	for i := len(pending) - 1; i >= 0; i-- {
		a := pending[i]
		l.logger.Debug("rollback", "step", a.order, "action", a.name)
		if err := runOne(ctx, a); err != nil {
			l.logger.Warn("rollback step failed", "step", a.order, "action", a.name, "error", err)
			errs = append(errs, &UndoError{Name: a.name, Err: err})
		}
	}

	return errors.Join(errs...)
}

// runOne shields the drain from a panicking undo so later actions still run.
func runOne(ctx context.Context, a action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.undo(ctx)
}
