package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// jsonFlag is the --json switch shared by the reporting commands.
type jsonFlag bool

func (j *jsonFlag) register(cmd *cobra.Command, what string) {
	cmd.Flags().BoolVar((*bool)(j), "json", false, fmt.Sprintf("Emit the %s as JSON", what))
}

// writeJSON encodes v as indented JSON to stdout. Labels are written
// verbatim rather than HTML-escaped.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s output: %w", cmd.Name(), err)
	}
	return nil
}
