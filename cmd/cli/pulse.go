package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dcx/core"
)

// PulseCmd returns the `dcx pulse` command group: submit, execute, replay.
func PulseCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pulse", Short: "submit, execute, and replay pulses"}
	cmd.AddCommand(pulseSubmitCmd())
	cmd.AddCommand(pulseExecuteCmd())
	cmd.AddCommand(pulseReplayCmd())
	return cmd
}

func pulseSubmitCmd() *cobra.Command {
	var functionCID string
	var inputJSON string
	var author string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "store an input value and mint a pending pulse template",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, _ := Default()

			var input any
			if inputJSON != "" {
				if err := json.Unmarshal([]byte(inputJSON), &input); err != nil {
					return fmt.Errorf("parse --input: %w", err)
				}
			}

			var inputCID core.CID
			if input != nil {
				var err error
				inputCID, err = store.Store(input)
				if err != nil {
					return err
				}
			}

			if author == "" {
				author = "cli:" + uuid.NewString()
			}

			pulse := core.CreatePulseTemplate(core.PulseOptions{
				Bounds:      core.DefaultBounds(),
				InputCID:    inputCID,
				FunctionCID: core.CID(functionCID),
				Author:      author,
			})

			out, err := json.MarshalIndent(pulse, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&functionCID, "function", "", "functionCid of registered code")
	cmd.Flags().StringVar(&inputJSON, "input", "", "input value as JSON")
	cmd.Flags().StringVar(&author, "author", "", "opaque author identity (default: generated)")
	return cmd
}

func pulseExecuteCmd() *cobra.Command {
	var pulseJSON string

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "execute a pulse template read from --pulse",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, engine := Default()

			var pulse core.Pulse
			if err := json.Unmarshal([]byte(pulseJSON), &pulse); err != nil {
				return fmt.Errorf("parse --pulse: %w", err)
			}

			result := engine.Execute(pulse)
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulseJSON, "pulse", "", "pulse record as JSON")
	return cmd
}

// pulseReplayCmd implements `dcx pulse replay`, the CLI front end over
// core.Replay: accepts either a pulseId, resolved from the store, or a
// full pulse record read as JSON.
func pulseReplayCmd() *cobra.Command {
	var pulseID, pulseJSON string

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "re-execute a pulse by pulseId or record and report determinism",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, engine := Default()

			var verification core.Verification
			switch {
			case pulseID != "":
				verification = core.Replay(engine, store, core.CID(pulseID))
			case pulseJSON != "":
				var pulse core.Pulse
				if err := json.Unmarshal([]byte(pulseJSON), &pulse); err != nil {
					return fmt.Errorf("parse --pulse: %w", err)
				}
				verification = core.Replay(engine, store, pulse)
			default:
				return fmt.Errorf("one of --pulse-id or --pulse is required")
			}

			out, err := json.MarshalIndent(verification, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulseID, "pulse-id", "", "pulseId CID of a previously executed pulse")
	cmd.Flags().StringVar(&pulseJSON, "pulse", "", "finalized pulse record as JSON")
	return cmd
}
