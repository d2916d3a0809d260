// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/hwprov/hwprov/internal/chroot"
	"github.com/hwprov/hwprov/internal/cmdrunner"
	"github.com/hwprov/hwprov/internal/config"
	"github.com/hwprov/hwprov/internal/issue"
	"github.com/hwprov/hwprov/internal/packages"
	"github.com/hwprov/hwprov/internal/repo"
)

// errChrootNotFound is returned when --chroot does not name a directory.
var errChrootNotFound = errors.New("chroot directory not found")

// actionable attaches operation context, suggestions and catalog guidance to
// err. Errors that already carry context are returned unchanged.
func actionable(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ec := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)

	var (
		toolErr *chroot.ToolMissingError
		cmdErr  *cmdrunner.CommandFailedError
	)
	switch {
	case errors.Is(err, packages.ErrPackageNotFound):
		ec.WithIssue(issue.PackageNotFoundId).WithSuggestions(
			"Check the package name and architecture",
			"Add a source that carries the package with --source",
		)
	case errors.Is(err, packages.ErrIntegrity):
		ec.WithIssue(issue.ChecksumMismatchId).
			WithSuggestion("Retry the fetch; the mirror may be mid-sync")
	case errors.Is(err, packages.ErrInvalidSource):
		ec.WithIssue(issue.SourceUnavailableId).
			WithSuggestion("Write sources as 'URI SUITE [COMPONENT...]' without the leading 'deb'")
	case errors.Is(err, repo.ErrNotFound):
		ec.WithIssue(issue.SourceUnavailableId).
			WithSuggestion("Verify the source URI and suite")
	case errors.Is(err, packages.ErrSandboxNotPrepared):
		ec.WithIssue(issue.SandboxFailedId)
	case errors.As(err, &toolErr):
		ec.WithIssue(issue.ToolMissingId)
		if toolErr.Package != "" {
			ec.WithSuggestion(fmt.Sprintf("Install the %s package", toolErr.Package))
		}
	case errors.Is(err, chroot.ErrSignature):
		ec.WithIssue(issue.SignatureInvalidId).
			WithSuggestion("Import the signing key with 'gpg --import'")
	case errors.Is(err, chroot.ErrScratchNotEmpty):
		ec.WithIssue(issue.CommandFailedId).
			WithSuggestion("Move the files named above back into the chroot's /etc by hand")
	case errors.As(err, &cmdErr):
		ec.WithIssue(issue.CommandFailedId).WithSuggestions(
			"Re-run with --verbose to see each command",
			"Use --dry-run to print the commands without running them",
		)
	case errors.Is(err, errChrootNotFound):
		ec.WithIssue(issue.ChrootNotFoundId).
			WithSuggestion("Pass the root of an unpacked root filesystem with --chroot")
	case errors.Is(err, fs.ErrPermission):
		ec.WithIssue(issue.PermissionDeniedId).
			WithSuggestion("Check privilege.escalate_command in the configuration")
	}
	return ec.BuildError()
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, packages.ErrPackageNotFound),
		errors.Is(err, repo.ErrNotFound),
		errors.Is(err, errChrootNotFound):
		return exitNotFound
	case errors.Is(err, chroot.ErrToolMissing):
		return exitToolMissing
	case errors.Is(err, cmdrunner.ErrCommandFailed):
		return exitCommandFailed
	case errors.Is(err, packages.ErrInvalidSource),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, errUsage):
		return exitUsage
	default:
		return exitFailure
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// reportError prints err and, when it names one, the catalog guidance, and
// returns the ExitError the command should fail with.
func reportError(stderr io.Writer, err error, verbose bool) error {
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	if entry := issue.IssueOf(err); entry != nil {
		rendered, renderErr := entry.Render("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", entry.Id(), "error", renderErr)
		} else {
			fmt.Fprint(stderr, rendered)
		}
	}

	return &ExitError{Code: exitCodeFor(err), Err: err}
}
