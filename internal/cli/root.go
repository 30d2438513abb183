// Package cli implements the weldsim command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/internal/config"
	"github.com/YuminosukeSato/weldsim/pkg/errors"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/weld"
)

// RootOptions holds global flags and the state they produce.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"

	Out    io.Writer
	ErrOut io.Writer

	cfg    *config.Config
	logger log.Logger
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"json", "text"}

// NewRootCommand creates the weldsim root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Out: os.Stdout, ErrOut: os.Stderr}

	cmd := &cobra.Command{
		Use:   "weldsim",
		Short: "TIG/MIG welding simulation inference",
		Long: `weldsim trains penetration, bead-width and defect models on welding
process parameters and serves predictions and simulated weld passes.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTrainCommand(opts))
	cmd.AddCommand(NewPredictCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))
	cmd.AddCommand(NewPlotCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return errors.NewValidationError("format", "must be json or text", o.Format)
	}
	o.Out = cmd.OutOrStdout()
	o.ErrOut = cmd.ErrOrStderr()

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	logger, err := log.SetupLogger(o.ErrOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// bankFlags are shared by the commands that need a trained bank.
type bankFlags struct {
	path string
}

func (b *bankFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&b.path, "bank", "", "gob bank snapshot (trains on synthetic data when empty)")
}

// loadBank reads the snapshot at path, or trains a bank from the configured
// synthetic data.
func (o *RootOptions) loadBank(ctx context.Context, path string) (*weld.ModelBank, error) {
	if path == "" {
		path = o.cfg.Bank.Path
	}
	if path != "" {
		bank, err := weld.LoadBankFile(path)
		if err != nil {
			return nil, err
		}
		o.logger.Info("model bank loaded", "path", path, log.BankIDKey, bank.Info().ID)
		return bank, nil
	}

	ts, err := weld.GenerateSynthetic(o.cfg.Bank.Samples, o.cfg.Bank.DataSeed)
	if err != nil {
		return nil, err
	}
	opts := append(o.cfg.BankOptions(),
		weld.WithLogger(o.logger.With(log.ComponentKey, "weld.bank")),
		weld.WithSource("synthetic"))
	return weld.Train(ctx, ts, opts...)
}

// readInput decodes a JSON object from path, or from stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (weld.RawInput, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", path)
		}
		defer f.Close()
		r = f
	}
	return decodeInput(r)
}
