package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// printJSON writes the --json form of a command result to stdout. Every
// command that supports --json funnels its jsonX value through here so the
// output shape stays uniform across the surface.
func printJSON(v any) error {
	return fprintJSON(os.Stdout, v)
}

func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
