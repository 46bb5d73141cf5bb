package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wasmerio/wasmer-go/wasmer"

	"dcx/core"
)

// RegistryCmd returns the `dcx registry` command group for registering
// script and wasm code. Builtins are not registered here; Default
// registers them.
func RegistryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "registry", Short: "register runnable code"}
	cmd.AddCommand(registryScriptCmd())
	cmd.AddCommand(registryWasmCmd())
	return cmd
}

func registryScriptCmd() *cobra.Command {
	var name, program string

	cmd := &cobra.Command{
		Use:   "script",
		Short: "register a postfix-expression script",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, _ := Default()
			cid, err := registry.Register(core.KindScript, program, core.Metadata{Name: name}, core.NewScript(program))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cid)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable name (metadata only)")
	cmd.Flags().StringVar(&program, "program", "", "postfix expression, e.g. \"$a $b +\"")
	return cmd
}

func registryWasmCmd() *cobra.Command {
	var name, path string

	cmd := &cobra.Command{
		Use:   "wasm",
		Short: "register a pre-compiled wasm plugin",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, _ := Default()

			code, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read wasm module: %w", err)
			}

			engine := wasmer.NewEngine()
			runnable, err := core.NewWasmPlugin(engine, code)
			if err != nil {
				return err
			}

			cid, err := registry.Register(core.KindWasm, string(code), core.Metadata{Name: name}, runnable)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cid)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "human-readable name (metadata only)")
	cmd.Flags().StringVar(&path, "path", "", "path to the compiled .wasm module")
	return cmd
}
