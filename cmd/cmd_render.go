// cmd_render.go - Overlay-Erzeugung aus Bild und Attention-Dump
// Hauptfunktionen: RenderHandler, loadInputs
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/envconfig"
	"github.com/ollama/rollout/overlay"
	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
	"github.com/ollama/rollout/visualize"
)

// RenderHandler - Berechnet den Rollout und schreibt das Overlay
func RenderHandler(cmd *cobra.Command, args []string) error {
	imagePath := envconfig.Image()
	if len(args) > 0 {
		imagePath = args[0]
	}

	attnPath, _ := cmd.Flags().GetString("attention")
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	heatmap, _ := cmd.Flags().GetBool("heatmap")
	size, _ := cmd.Flags().GetUint("size")
	patchSize, _ := cmd.Flags().GetUint("patch-size")

	img, seq, err := loadInputs(cmd.Context(), imagePath, attnPath, format)
	if err != nil {
		return err
	}

	opts := []visualize.Option{
		visualize.WithPreprocess(vision.WithInputSize(int(size))),
		visualize.WithHeatmap(heatmap),
	}
	if patchSize > 0 {
		opts = append(opts, visualize.WithModel(attention.ModelInfo{
			Name:      "cli",
			ImageSize: int(size),
			PatchSize: int(patchSize),
		}))
	}

	v := visualize.New(attention.NewStaticCollector(seq), opts...)
	res, err := v.Render(cmd.Context(), img, &overlay.FileSink{Path: out})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d, grid %dx%d, max %.4f)\n",
		out, img.Width, img.Height, res.Rollout.Grid.Side(), res.Rollout.Grid.Side(), res.Rollout.Grid.Max())
	return nil
}

// loadInputs - Laedt Bild und Dump parallel
func loadInputs(ctx context.Context, imagePath, attnPath, format string) (*vision.ImageInput, rollout.Sequence, error) {
	var (
		img *vision.ImageInput
		seq rollout.Sequence
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		img, err = vision.LoadImage(imagePath)
		if err != nil {
			return fmt.Errorf("load image %s: %w", imagePath, err)
		}
		return ctx.Err()
	})
	g.Go(func() error {
		var err error
		seq, err = attention.LoadFile(attnPath, format)
		if err != nil {
			return fmt.Errorf("load attention %s: %w", attnPath, err)
		}
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return img, seq, nil
}
