// cmd_convert.go - Umwandlung von Dumps in den Raw-Container
// Hauptfunktionen: ConvertHandler
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ollama/rollout/attention"
)

// ConvertHandler - Liest einen Dump beliebigen Formats und schreibt ihn als Raw-Container
func ConvertHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	dtypeName, _ := cmd.Flags().GetString("dtype")

	dt, err := attention.ParseDType(dtypeName)
	if err != nil {
		return err
	}

	seq, err := attention.LoadFile(args[0], format)
	if err != nil {
		return err
	}

	dst := args[1]
	f, err := os.CreateTemp(filepath.Dir(dst), ".attn-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := attention.EncodeRaw(f, seq, dt); err != nil {
		f.Close()
		return fmt.Errorf("convert %s: %w", args[0], err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), dst); err != nil {
		return err
	}

	shape := seq.Shape()
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d layers, %d heads, %d tokens, %s)\n",
		dst, seq.Len(), shape.Heads, shape.Tokens, dt)
	return nil
}
