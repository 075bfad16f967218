package cli

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-order-notify/core"
	"github.com/spf13/cobra"
)

// runtimeConfig carries flag overrides. Zero values leave the loaded config
// untouched.
func runtimeConfig() core.Config {
	return core.Config{}
}

func writeOutput(cmd *cobra.Command, opts *RootOptions, value any, text string) error {
	out := cmd.OutOrStdout()
	if opts != nil && opts.Format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
