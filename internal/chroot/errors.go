// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"errors"
	"fmt"
)

var (
	// ErrToolMissing is the sentinel error wrapped by ToolMissingError.
	ErrToolMissing = errors.New("required host tool not found")

	// ErrSignature is the sentinel error wrapped by SignatureError.
	ErrSignature = errors.New("hwpack signature verification failed")

	// ErrScratchNotEmpty is returned by teardown when the scratch directory
	// still holds displaced chroot files. They are left in place.
	ErrScratchNotEmpty = errors.New("scratch directory kept, it still holds original chroot files")
)

type (
	// ToolMissingError is returned when a host-side program needed for
	// staging cannot be located. Package names the distribution package
	// that provides it.
	ToolMissingError struct {
		Tool    string
		Package string
	}

	// SignatureError is returned when a detached hwpack signature does not
	// verify.
	SignatureError struct {
		Hwpack    string
		Signature string
		Err       error
	}
)

// Error implements the error interface.
func (e *ToolMissingError) Error() string {
	if e.Package == "" {
		return fmt.Sprintf("required tool %q not found", e.Tool)
	}
	return fmt.Sprintf("required tool %q not found (install the %q package)", e.Tool, e.Package)
}

// Unwrap returns ErrToolMissing for errors.Is() compatibility.
func (e *ToolMissingError) Unwrap() error {
	return ErrToolMissing
}

// Error implements the error interface.
func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature %s does not verify %s: %v", e.Signature, e.Hwpack, e.Err)
}

// Unwrap returns both ErrSignature and the underlying cause.
func (e *SignatureError) Unwrap() []error {
	return []error{ErrSignature, e.Err}
}
