// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/hwprov/hwprov/internal/cmdrunner"
	"github.com/hwprov/hwprov/internal/config"
)

type (
	staticConfig struct {
		cfg *config.Config
		err error
	}

	// recordingRunner records every command and fails the first one whose
	// program is failOn.
	recordingRunner struct {
		mu     sync.Mutex
		calls  [][]string
		failOn string
		// cancelOn cancels the command context when its program runs. Once the
		// context is done the runner refuses commands, as exec.CommandContext does.
		cancelOn string
		cancel   context.CancelFunc
	}
)

func (s staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, error) {
	return s.cfg, s.err
}

func (r *recordingRunner) Run(ctx context.Context, argv []string, _ bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return -1, fmt.Errorf("%s: %w", argv[0], err)
	}
	r.calls = append(r.calls, slices.Clone(argv))
	if r.cancelOn != "" && argv[0] == r.cancelOn {
		r.cancel()
		return -1, fmt.Errorf("%s: %w", argv[0], context.Canceled)
	}
	if r.failOn != "" && argv[0] == r.failOn {
		return 1, nil
	}
	return 0, nil
}

func (r *recordingRunner) programs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c[0]
	}
	return out
}

// newTestApp returns an App with captured output, the given configuration
// and runner, and a PATH lookup that finds nothing.
func newTestApp(t *testing.T, cfg *config.Config, runner cmdrunner.Runner) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{
		Config: staticConfig{cfg: cfg},
		Runners: func(RunnerRequest) cmdrunner.Runner {
			return runner
		},
		LookPath: func(file string) (string, error) {
			return "", os.ErrNotExist
		},
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return app, &stdout, &stderr
}
