package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// pulseJSONSchema is the published JSON-Schema artifact for the pulse wire
// form.
var pulseJSONSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title":   "Pulse",
	"type":    "object",
	"required": []string{"bounds", "inputCid", "functionCid", "author"},
	"properties": map[string]any{
		"pulseId":       map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"parentPulseId": map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"logicalTick":   map[string]any{"type": "integer", "minimum": 0},
		"bounds": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"required":             []string{"maxSteps", "maxMemoryBytes", "maxBranchDepth", "maxExecutionMs"},
			"properties": map[string]any{
				"maxSteps":       map[string]any{"type": "integer", "minimum": 1, "maximum": 1_000_000_000},
				"maxMemoryBytes": map[string]any{"type": "integer", "minimum": 1, "maximum": 1 << 30},
				"maxBranchDepth": map[string]any{"type": "integer", "minimum": 1, "maximum": 1000},
				"maxExecutionMs": map[string]any{"type": "integer", "minimum": 1, "maximum": 300_000},
			},
		},
		"inputCid":    map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"functionCid": map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"outputCid":   map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"traceCid":    map[string]any{"type": "string", "pattern": "^cid:[a-z0-9]+:[a-f0-9]+$"},
		"author":      map[string]any{"type": "string"},
		"signature":   map[string]any{"type": "string"},
		"status":      map[string]any{"type": "string", "enum": []string{"pending", "executing", "completed", "failed", "violated"}},
	},
}

// SchemaCmd returns the `dcx schema` command group.
func SchemaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "schema", Short: "print published wire-format schemas"}
	cmd.AddCommand(schemaPulseCmd())
	return cmd
}

func schemaPulseCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "pulse",
		Short: "print the pulse JSON-Schema artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "yaml":
				b, err := yaml.Marshal(pulseJSONSchema)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(b))
			default:
				b, err := json.MarshalIndent(pulseJSONSchema, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}
