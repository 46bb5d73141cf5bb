package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dcx/core"
)

// VerifyCmd returns the `dcx verify` command: replay-based determinism
// checking for a completed pulse.
func VerifyCmd() *cobra.Command {
	var pulseJSON string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "replay a pulse and confirm determinism",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, engine := Default()

			var pulse core.Pulse
			if err := json.Unmarshal([]byte(pulseJSON), &pulse); err != nil {
				return fmt.Errorf("parse --pulse: %w", err)
			}

			verification := core.Verify(engine, store, pulse)
			out, err := json.MarshalIndent(verification, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulseJSON, "pulse", "", "completed pulse record as JSON")
	return cmd
}
