package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/internal/chart"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	SimulateOptions
	Out   string
	Title string
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{SimulateOptions: SimulateOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render a simulated weld pass as a PNG or SVG chart",
		Long: `Simulate a weld pass like 'simulate' and draw penetration, bead width
and defect probability against position. The image format follows the
extension of --out.

Example:
  echo '{"current": 180}' | weldsim plot --out pass.svg --segments 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, opts)
		},
	}

	opts.SimulateOptions.register(cmd)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output image (.png or .svg, required)")
	cmd.Flags().StringVar(&opts.Title, "title", chart.DefaultOptions().Title, "chart title")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPlot(cmd *cobra.Command, opts *PlotOptions) error {
	chartOpts := chart.DefaultOptions()
	chartOpts.Title = opts.Title
	chartOpts.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.Out)), ".")
	if chartOpts.Format != "png" && chartOpts.Format != "svg" {
		return errors.NewValidationError("out", "extension must be .png or .svg", opts.Out)
	}

	points, err := opts.trajectory(cmd)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", opts.Out)
	}
	if err := chart.Render(f, points, chartOpts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", opts.Out)
	}
	opts.logger.Info("chart written", "path", opts.Out, "segments", len(points))
	return nil
}
