// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that fail the test on
// error, reducing filesystem fixture boilerplate.
package testutil
