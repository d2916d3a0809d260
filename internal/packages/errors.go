// SPDX-License-Identifier: MPL-2.0

package packages

import (
	"errors"
	"fmt"
)

var (
	// ErrPackageNotFound is the sentinel error wrapped by PackageNotFoundError.
	ErrPackageNotFound = errors.New("package not found")

	// ErrSandboxNotPrepared is returned when a Fetcher is used before Prepare.
	ErrSandboxNotPrepared = errors.New("sandbox not prepared")

	// ErrIntegrity is the sentinel error wrapped by IntegrityError.
	ErrIntegrity = errors.New("archive integrity check failed")

	// ErrInvalidSource is the sentinel error wrapped by InvalidSourceError.
	ErrInvalidSource = errors.New("invalid repository source")
)

type (
	// PackageNotFoundError is returned when no configured source offers a
	// requested package.
	PackageNotFoundError struct {
		Name string
	}

	// IntegrityError is returned when a downloaded archive does not match the
	// size or digest published in the package index.
	IntegrityError struct {
		Archive string
		Field   string
		Want    string
		Got     string
	}

	// InvalidSourceError is returned when a source entry cannot be parsed.
	InvalidSourceError struct {
		Source string
		Reason string
	}
)

// Error implements the error interface.
func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %q not found in any configured source", e.Name)
}

// Unwrap returns ErrPackageNotFound for errors.Is() compatibility.
func (e *PackageNotFoundError) Unwrap() error {
	return ErrPackageNotFound
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s mismatch: index says %s, downloaded %s", e.Archive, e.Field, e.Want, e.Got)
}

// Unwrap returns ErrIntegrity for errors.Is() compatibility.
func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// Error implements the error interface.
func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid repository source %q: %s", e.Source, e.Reason)
}

// Unwrap returns ErrInvalidSource for errors.Is() compatibility.
func (e *InvalidSourceError) Unwrap() error {
	return ErrInvalidSource
}
