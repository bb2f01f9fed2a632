// SPDX-License-Identifier: MPL-2.0

// Command setup-pulumi installs the Pulumi CLI.
package main

import cmd "github.com/pulumi/setup-pulumi/cmd/setup-pulumi"

func main() {
	cmd.Execute()
}
