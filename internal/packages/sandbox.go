// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hwprov/hwprov/internal/rollback"
)

const (
	// State values track a Sandbox through its lifecycle.
	StateUninitialized State = iota
	StatePrepared
	StateTornDown
)

// Paths inside a sandbox, relative to its root.
var (
	StatusFile  = filepath.Join("var", "lib", "dpkg", "status")
	ArchivesDir = filepath.Join("var", "cache", "apt", "archives")
	ListsDir    = filepath.Join("var", "lib", "apt", "lists")
	SourcesList = filepath.Join("etc", "apt", "sources.list")
)

type (
	// State is the lifecycle position of a Sandbox.
	State int

	// Sandbox is a disposable directory tree mimicking apt's on-disk state.
	// The caller that creates a Sandbox owns its Cleanup.
	Sandbox struct {
		sources []string
		tempDir string
		root    string
		state   State
		ledger  *rollback.Ledger
		logger  *slog.Logger
	}

	// SandboxOption configures a Sandbox.
	SandboxOption func(*Sandbox)
)

// NewSandbox creates an unprepared sandbox for the given sources.
func NewSandbox(sources []string, opts ...SandboxOption) *Sandbox {
	s := &Sandbox{
		sources: append([]string(nil), sources...),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledger = rollback.New(s.logger)
	return s
}

// WithTempDir sets the parent directory for sandbox trees. Empty means os.TempDir().
func WithTempDir(dir string) SandboxOption {
	return func(s *Sandbox) {
		s.tempDir = dir
	}
}

// WithSandboxLogger sets the sandbox logger.
func WithSandboxLogger(logger *slog.Logger) SandboxOption {
	return func(s *Sandbox) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrepared:
		return "prepared"
	case StateTornDown:
		return "torn down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Prepare creates a fresh, uniquely named tree holding an empty dpkg status
// file, empty archive and list staging directories, and a sources.list with
// one "deb <source>" line per source. Preparing again creates a new tree;
// every tree is removed by Cleanup.
func (s *Sandbox) Prepare() error {
	root, err := os.MkdirTemp(s.tempDir, "hwprov-sandbox-")
	if err != nil {
		return fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	s.ledger.Register("remove sandbox "+root, func(context.Context) error {
		return os.RemoveAll(root)
	})

	dirs := []string{
		filepath.Dir(StatusFile),
		filepath.Join(ArchivesDir, "partial"),
		filepath.Join(ListsDir, "partial"),
		filepath.Dir(SourcesList),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create sandbox directory: %w", err)
		}
	}

	if err := os.WriteFile(filepath.Join(root, StatusFile), nil, 0o644); err != nil {
		return fmt.Errorf("failed to create dpkg status file: %w", err)
	}

	var list strings.Builder
	for _, src := range s.sources {
		list.WriteString("deb ")
		list.WriteString(src)
		list.WriteString("\n")
	}
	if err := os.WriteFile(filepath.Join(root, SourcesList), []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write sources.list: %w", err)
	}

	s.root = root
	s.state = StatePrepared
	s.logger.Debug("sandbox prepared", "root", root, "sources", len(s.sources))
	return nil
}

// Cleanup removes every tree this sandbox created. It is safe to call before
// Prepare, after the tree is already gone, and any number of times.
func (s *Sandbox) Cleanup() error {
	err := s.ledger.RunAll(context.Background())
	if s.state == StatePrepared {
		s.state = StateTornDown
	}
	return err
}

// Root returns the current tree, or "" before Prepare.
func (s *Sandbox) Root() string {
	return s.root
}

// State returns the lifecycle state.
func (s *Sandbox) State() State {
	return s.state
}

// Path joins rel onto the sandbox root.
func (s *Sandbox) Path(rel string) string {
	return filepath.Join(s.root, rel)
}
