// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/graphweave/graphweave/cmd/graphweave"

func main() {
	cmd.Execute()
}
