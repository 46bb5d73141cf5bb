package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dcx/core"
)

// BenchCmd returns the `dcx bench` command group.
func BenchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bench", Short: "benchmarking helpers"}
	cmd.AddCommand(benchParallelCmd())
	return cmd
}

// benchParallelCmd fans a batch of pulses out across N independent engine
// instances, each with its own store and registry, so no per-pulse state is
// ever shared.
func benchParallelCmd() *cobra.Command {
	var pulsesJSON string
	var fanout int

	cmd := &cobra.Command{
		Use:   "parallel",
		Short: "execute a batch of fibonacci pulses across N isolated engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			var counts []int
			if err := json.Unmarshal([]byte(pulsesJSON), &counts); err != nil {
				return fmt.Errorf("parse --pulses as a JSON array of fibonacci n values: %w", err)
			}
			if fanout < 1 {
				fanout = 1
			}

			results := make([]core.Result, len(counts))
			var g errgroup.Group
			g.SetLimit(fanout)

			for i, n := range counts {
				i, n := i, n
				g.Go(func() error {
					store := core.NewStore()
					registry := core.NewCodeRegistry(store)
					engine := core.NewEngine(store, registry)
					functionCID, err := registry.Register(core.KindBuiltin, "fibonacci", core.Metadata{Name: "fibonacci"}, core.FibonacciBuiltin())
					if err != nil {
						return err
					}
					inputCID, err := store.Store(map[string]any{"n": n})
					if err != nil {
						return err
					}
					pulse := core.CreatePulseTemplate(core.PulseOptions{
						Bounds:      core.DefaultBounds(),
						InputCID:    inputCID,
						FunctionCID: functionCID,
						Author:      "cli:bench-parallel",
					})
					results[i] = engine.Execute(pulse)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&pulsesJSON, "pulses", "[15]", "JSON array of fibonacci n values, one pulse each")
	cmd.Flags().IntVar(&fanout, "fanout", 4, "maximum number of engines running concurrently")
	return cmd
}
