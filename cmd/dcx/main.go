// Command dcx is the CLI front end over the DCX execution substrate.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"dcx/cmd/cli"
)

func main() {
	root := &cobra.Command{Use: "dcx", Short: "deterministic controlled execution substrate"}
	root.AddCommand(cli.PulseCmd())
	root.AddCommand(cli.VerifyCmd())
	root.AddCommand(cli.ProofCmd())
	root.AddCommand(cli.RegistryCmd())
	root.AddCommand(cli.ConfigCmd())
	root.AddCommand(cli.SchemaCmd())
	root.AddCommand(cli.BenchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
