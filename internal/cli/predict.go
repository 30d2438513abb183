package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/weld"
)

// PredictOptions holds flags for the predict command.
type PredictOptions struct {
	*RootOptions
	bankFlags
	Input string
}

// NewPredictCommand creates the predict command.
func NewPredictCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PredictOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict penetration, bead width and defect probability",
		Long: `Read a JSON object of welding parameters and print the predictions.
Missing parameters take their defaults.

Example:
  echo '{"current": 150, "voltage": 24}' | weldsim predict --bank bank.gob`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, opts.Input)
			if err != nil {
				return err
			}
			bank, err := opts.loadBank(cmd.Context(), opts.path)
			if err != nil {
				return err
			}
			res, err := weld.NewService(bank).Predict(cmd.Context(), raw)
			if err != nil {
				return err
			}
			return opts.emit(predictOutput{Input: weld.EchoInput(raw), PredictionResult: res})
		},
	}

	opts.bankFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "-", "JSON input file (- for stdin)")

	return cmd
}
