package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dcx/core"
)

// ProofCmd returns the `dcx proof` command group: generate and verify
// proof-of-execution artifacts.
func ProofCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "proof", Short: "generate and verify proofs of execution"}
	cmd.AddCommand(proofGenerateCmd())
	cmd.AddCommand(proofVerifyCmd())
	return cmd
}

func proofGenerateCmd() *cobra.Command {
	var pulseJSON, traceJSON string
	var compact bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "build a proof artifact over a finalized pulse and its trace",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, _ := Default()

			var pulse core.Pulse
			if err := json.Unmarshal([]byte(pulseJSON), &pulse); err != nil {
				return fmt.Errorf("parse --pulse: %w", err)
			}
			var trace core.Trace
			if err := json.Unmarshal([]byte(traceJSON), &trace); err != nil {
				return fmt.Errorf("parse --trace: %w", err)
			}

			proof, err := core.GenerateProof(store, pulse, trace)
			if err != nil {
				return err
			}

			var payload any = proof
			if compact {
				payload = proof.ToCompact()
			}
			out, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulseJSON, "pulse", "", "finalized pulse record as JSON")
	cmd.Flags().StringVar(&traceJSON, "trace", "", "trace record as JSON")
	cmd.Flags().BoolVar(&compact, "compact", false, "emit a compact proof (no Merkle paths)")
	return cmd
}

func proofVerifyCmd() *cobra.Command {
	var pulseJSON, proofJSON string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "verify a proof artifact against a pulse, without re-executing",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pulse core.Pulse
			if err := json.Unmarshal([]byte(pulseJSON), &pulse); err != nil {
				return fmt.Errorf("parse --pulse: %w", err)
			}
			var proof core.Proof
			if err := json.Unmarshal([]byte(proofJSON), &proof); err != nil {
				return fmt.Errorf("parse --proof: %w", err)
			}

			verification, err := core.VerifyProof(pulse, proof)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(verification, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulseJSON, "pulse", "", "pulse record as JSON")
	cmd.Flags().StringVar(&proofJSON, "proof", "", "proof artifact as JSON")
	return cmd
}
