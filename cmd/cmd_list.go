// cmd_list.go - Tabellen-Ausgaben fuer inspect und formats
// Hauptfunktionen: InspectHandler, FormatsHandler
package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/rollout"
)

// stochasticTol - Toleranz fuer die Zeilensummen-Pruefung
const stochasticTol = 1e-6

// InspectHandler - Zeigt Layer-Shapes, Zeilensummen und das Rollout-Grid eines Dumps
func InspectHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	showGrid, _ := cmd.Flags().GetBool("grid")

	seq, err := attention.LoadFile(args[0], format)
	if err != nil {
		return err
	}

	res, err := rollout.Accumulate(seq)
	if err != nil {
		return err
	}

	var data [][]string
	for i, layer := range seq {
		sums := rollout.RowSums(res.Averaged[i])
		data = append(data, []string{
			strconv.Itoa(i),
			strconv.Itoa(layer.Heads()),
			strconv.Itoa(layer.Tokens()),
			fmt.Sprintf("%.4f..%.4f", floats.Min(sums), floats.Max(sums)),
			yesNo(rollout.IsRowStochastic(res.Averaged[i], stochasticTol)),
			yesNo(rollout.IsRowStochastic(res.Joint[i], stochasticTol)),
		})
	}

	out := cmd.OutOrStdout()
	table := newTable(out, []string{"LAYER", "HEADS", "TOKENS", "ROW SUMS", "STOCHASTIC", "JOINT STOCHASTIC"})
	table.AppendBulk(data)
	table.Render()

	// Die Layer-Tabelle steht auch dann, wenn das Grid nicht aufgeht
	grid, err := rollout.Reshape(rollout.ExtractSaliency(res.Joint[len(res.Joint)-1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ngrid %dx%d  min %.6f  max %.6f\n", grid.Side(), grid.Side(), grid.Min(), grid.Max())

	if showGrid {
		printGrid(out, grid)
	}
	return nil
}

// FormatsHandler - Listet alle registrierten Dump-Formate
func FormatsHandler(cmd *cobra.Command, _ []string) error {
	var data [][]string
	for _, name := range attention.Formats() {
		l, ok := attention.DefaultRegistry.Get(name)
		if !ok {
			continue
		}
		data = append(data, []string{name, strings.Join(l.Extensions(), ", ")})
	}

	table := newTable(cmd.OutOrStdout(), []string{"FORMAT", "EXTENSIONS"})
	table.AppendBulk(data)
	table.Render()

	return nil
}

// newTable - Tabelle im Stil der uebrigen Listen-Ausgaben
func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoFormatHeaders(false)
	return table
}

func printGrid(w io.Writer, grid *rollout.SaliencyGrid) {
	for _, row := range grid.Values() {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
