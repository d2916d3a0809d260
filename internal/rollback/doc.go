// SPDX-License-Identifier: MPL-2.0

// Package rollback records undo actions for privileged side effects and
// replays them in reverse registration order.
//
// A Ledger belongs to exactly one logical operation (a package sandbox, a
// chroot install run). The owner drains it explicitly, normally from a defer
// placed right after the ledger is created:
//
//	ledger := rollback.New(logger)
//	defer func() { err = errors.Join(err, ledger.RunAll(context.WithoutCancel(ctx))) }()
//
// Draining never stops early: a failing undo is logged and the remaining,
// earlier-registered undos still run.
package rollback
