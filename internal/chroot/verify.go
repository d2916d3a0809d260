// SPDX-License-Identifier: MPL-2.0

package chroot

import (
	"context"

	"github.com/hwprov/hwprov/internal/cmdrunner"
)

type (
	// Verifier checks a detached signature over a hwpack.
	Verifier interface {
		Verify(ctx context.Context, hwpack, signature string) error
	}

	// GPGVerifier verifies signatures with "gpg --verify" against the
	// invoking user's keyring.
	GPGVerifier struct {
		Runner cmdrunner.Runner
	}
)

// Verify implements Verifier.
func (v *GPGVerifier) Verify(ctx context.Context, hwpack, signature string) error {
	if err := cmdrunner.Check(ctx, v.Runner, []string{"gpg", "--verify", signature, hwpack}, false); err != nil {
		return &SignatureError{Hwpack: hwpack, Signature: signature, Err: err}
	}
	return nil
}
