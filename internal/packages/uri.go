// SPDX-License-Identifier: MPL-2.0

package packages

import "strings"

// NormalizeFileURI rewrites a host-less local file URI with a single slash
// (file:/srv/repo) into the three-slash form apt requires (file:///srv/repo).
// Anything else, including file URIs that already have an authority
// component and URIs of other schemes, is returned unchanged.
func NormalizeFileURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "file:/")
	if !ok || strings.HasPrefix(rest, "/") {
		return uri
	}
	return "file:///" + rest
}
