// SPDX-License-Identifier: MPL-2.0

package cmdrunner

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
	"mvdan.cc/sh/v3/syntax"
)

// DryRun is a Runner that prints each command instead of executing it and
// always reports success. Elevated commands carry the escalation prefix
// unless the caller is root, matching what Executor would run.
type DryRun struct {
	Out io.Writer
	// Escalate is shown in front of elevated commands. Empty means "sudo".
	Escalate string
	// Geteuid reports the effective uid. Nil means unix.Geteuid.
	Geteuid func() int
}

// Run implements Runner.
func (d *DryRun) Run(_ context.Context, argv []string, elevated bool) (int, error) {
	if len(argv) == 0 {
		return -1, ErrEmptyCommand
	}
	line := Quote(argv)
	if elevated && !d.isRoot() {
		escalate := d.Escalate
		if escalate == "" {
			escalate = DefaultEscalateCommand
		}
		line = escalate + " " + line
	}
	if _, err := fmt.Fprintln(d.Out, "+ "+line); err != nil {
		return -1, err
	}
	return 0, nil
}

func (d *DryRun) isRoot() bool {
	geteuid := d.Geteuid
	if geteuid == nil {
		geteuid = unix.Geteuid
	}
	return geteuid() == 0
}

// Quote renders argv as a single bash-safe command line.
func Quote(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			q = strconv.Quote(arg)
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}
