package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/internal/registry"
)

// InfoOptions holds flags for the info command.
type InfoOptions struct {
	*RootOptions
	bankFlags
	Runs int
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InfoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a model bank and recent training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := opts.loadBank(cmd.Context(), opts.path)
			if err != nil {
				return err
			}
			out := infoOutput{
				Features: bank.FeatureOrder(),
				Models:   bank.Describe(),
				Bank:     bank.Info(),
			}
			if opts.Runs > 0 && opts.cfg.Registry.DB != "" {
				reg, err := registry.Open(opts.cfg.Registry.DB)
				if err != nil {
					return err
				}
				defer reg.Close()
				if out.Runs, err = reg.List(cmd.Context(), opts.Runs); err != nil {
					return err
				}
			}
			return opts.emit(out)
		},
	}

	opts.bankFlags.register(cmd)
	cmd.Flags().IntVar(&opts.Runs, "runs", 0, "list this many recent runs from the registry")

	return cmd
}
