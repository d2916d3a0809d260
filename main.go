// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/hwprov/hwprov/cmd/hwprov"

func main() {
	cmd.Execute()
}
