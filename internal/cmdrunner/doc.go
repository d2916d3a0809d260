// SPDX-License-Identifier: MPL-2.0

// Package cmdrunner runs external commands as plain argument vectors,
// optionally wrapped in a privilege escalation command such as sudo.
//
// Runners block until the child exits. A non-zero exit status is returned as a
// value, not an error; Check turns it into a *CommandFailedError for callers
// that treat any failure as fatal.
package cmdrunner
