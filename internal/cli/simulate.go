package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/weld"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	bankFlags
	Input    string
	LengthMm float64
	Segments int
}

func (o *SimulateOptions) register(cmd *cobra.Command) {
	o.bankFlags.register(cmd)
	cmd.Flags().StringVarP(&o.Input, "input", "i", "-", "JSON input file (- for stdin)")
	cmd.Flags().Float64Var(&o.LengthMm, "length", weld.DefaultLengthMm, "weld pass length in mm")
	cmd.Flags().IntVar(&o.Segments, "segments", weld.DefaultSegments, "number of segments")
}

// trajectory reads the base parameters and simulates the pass.
func (o *SimulateOptions) trajectory(cmd *cobra.Command) ([]weld.TrajectoryPoint, error) {
	raw, err := readInput(cmd, o.Input)
	if err != nil {
		return nil, err
	}
	bank, err := o.loadBank(cmd.Context(), o.path)
	if err != nil {
		return nil, err
	}
	return weld.NewService(bank).Simulate(cmd.Context(), raw, o.LengthMm, o.Segments)
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a weld pass with varying travel speed and torch angle",
		Long: `Read base welding parameters as JSON and predict every segment of a
virtual weld pass while travel speed and torch angle vary sinusoidally.

Example:
  echo '{}' | weldsim simulate --length 200 --segments 5 --format text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := opts.trajectory(cmd)
			if err != nil {
				return err
			}
			return opts.emit(simulateOutput{Simulation: points, Segments: opts.Segments, LengthMm: opts.LengthMm})
		},
	}

	opts.register(cmd)
	return cmd
}
