// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newRenderCmd, newInspectCmd, newConvertCmd, newServeCmd, newFormatsCmd
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ollama/rollout/envconfig"
)

// newRenderCmd - Erstellt den render Command
func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render [IMAGE]",
		Short: "Render an attention rollout overlay for an image",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RenderHandler,
	}

	renderCmd.Flags().StringP("attention", "a", "", "Attention dump captured for the image")
	renderCmd.Flags().String("format", envconfig.Format(), "Attention dump format (json, raw, torch; default: detect)")
	renderCmd.Flags().StringP("out", "o", "overlay.png", "Output image (png or jpeg)")
	renderCmd.Flags().Bool("heatmap", envconfig.Heatmap(), "Render a false-colour heat map instead of the masked image")
	renderCmd.Flags().Uint("size", envconfig.InputSize(), "Model input side in pixels")
	renderCmd.Flags().Uint("patch-size", envconfig.PatchSize(), "Patch side used to check the attention layout (0 = unchecked)")
	_ = renderCmd.MarkFlagRequired("attention")

	return renderCmd
}

// newInspectCmd - Erstellt den inspect Command
func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show layer shapes, row sums and the rollout grid of an attention dump",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}

	inspectCmd.Flags().String("format", envconfig.Format(), "Attention dump format (json, raw, torch; default: detect)")
	inspectCmd.Flags().Bool("grid", false, "Print the saliency grid values")

	return inspectCmd
}

// newConvertCmd - Erstellt den convert Command
func newConvertCmd() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert an attention dump to the raw container",
		Args:  cobra.ExactArgs(2),
		RunE:  ConvertHandler,
	}

	convertCmd.Flags().String("format", envconfig.Format(), "Input dump format (json, raw, torch; default: detect)")
	convertCmd.Flags().String("dtype", "f32", "Element type of the raw container (f32, f16, bf16)")

	return convertCmd
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the rollout HTTP server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
}

// newFormatsCmd - Erstellt den formats Command
func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported attention dump formats",
		Args:  cobra.ExactArgs(0),
		RunE:  FormatsHandler,
	}
}
