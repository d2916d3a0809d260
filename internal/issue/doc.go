// SPDX-License-Identifier: MPL-2.0

// Package issue turns failures into messages a person running hwprov can act
// on: an ActionableError says what was attempted, on what, and what to try
// next, and may point at a catalog Issue whose Markdown guidance is rendered
// with glamour.
package issue
