package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dcx/pkg/config"
)

// ConfigCmd returns the `dcx config` command group.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "inspect the loaded configuration"}
	cmd.AddCommand(configShowCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	var format string
	var env string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "print the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env)
			if err != nil {
				return err
			}

			switch format {
			case "yaml":
				b, err := cfg.YAML()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(b))
			default:
				b, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name")
	return cmd
}
