// SPDX-License-Identifier: MPL-2.0

// Package repo retrieves files from Debian-style package repositories.
//
// A Transport opens a repository-relative URI for reading. Local (file:) and
// network (http:, https:) repositories are supported; Mux picks the right one
// by scheme. Package indexes may be published compressed, so Compression
// knows how to decode the variants apt understands.
package repo
