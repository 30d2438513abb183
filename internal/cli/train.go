package cli

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/internal/registry"
	"github.com/YuminosukeSato/weldsim/weld"
)

// TrainOptions holds flags for the train command.
type TrainOptions struct {
	*RootOptions
	Out        string
	Samples    int
	DataSeed   uint64
	Seed       uint64
	Kind       string
	Estimators int
	MaxDepth   int
	Jobs       int
	Holdout    float64
	Registry   string
}

// NewTrainCommand creates the train command.
func NewTrainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model bank on synthetic data and save it",
		Long: `Generate a synthetic training set, train the three models and write
the bank as a gob snapshot. With --holdout, part of the data is kept aside
and an evaluation report is printed.

Example:
  weldsim train --out bank.gob --holdout 0.2
  weldsim train --out linear.gob --kind linear --format text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.applyFlags(cmd)
			return runTrain(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output path for the gob snapshot (required)")
	cmd.Flags().IntVar(&opts.Samples, "samples", weld.DefaultSamples, "number of synthetic rows")
	cmd.Flags().Uint64Var(&opts.DataSeed, "data-seed", weld.DefaultDataSeed, "seed of the synthetic data")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "base seed of the models")
	cmd.Flags().StringVar(&opts.Kind, "kind", string(weld.KindForest), "model family (forest|linear)")
	cmd.Flags().IntVar(&opts.Estimators, "estimators", weld.DefaultEstimators, "trees per forest")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "maximum tree depth (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Jobs, "jobs", 0, "goroutines used to grow trees (0 = all CPUs)")
	cmd.Flags().Float64Var(&opts.Holdout, "holdout", 0, "fraction of rows kept for evaluation")
	cmd.Flags().StringVar(&opts.Registry, "registry", "", "SQLite registry to record the run in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// applyFlags copies explicitly set flags over the loaded config.
func (o *TrainOptions) applyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	b := &o.cfg.Bank
	if f.Changed("samples") {
		b.Samples = o.Samples
	}
	if f.Changed("data-seed") {
		b.DataSeed = o.DataSeed
	}
	if f.Changed("seed") {
		b.Seed = o.Seed
	}
	if f.Changed("kind") {
		b.Kind = o.Kind
	}
	if f.Changed("estimators") {
		b.Estimators = o.Estimators
	}
	if f.Changed("max-depth") {
		b.MaxDepth = o.MaxDepth
	}
	if f.Changed("jobs") {
		b.Jobs = o.Jobs
	}
	if f.Changed("holdout") {
		b.Holdout = o.Holdout
	}
	if f.Changed("registry") {
		o.cfg.Registry.DB = o.Registry
	}
}

func runTrain(cmd *cobra.Command, opts *TrainOptions) error {
	if err := opts.cfg.Validate(); err != nil {
		return err
	}
	// a snapshot path in config must not short-circuit training
	opts.cfg.Bank.Path = ""

	bank, err := opts.loadBank(cmd.Context(), "")
	if err != nil {
		return err
	}
	if err := bank.SaveFile(opts.Out); err != nil {
		return err
	}

	if opts.cfg.Registry.DB != "" {
		reg, err := registry.Open(opts.cfg.Registry.DB)
		if err != nil {
			return err
		}
		defer reg.Close()
		if err := reg.Record(cmd.Context(), bank.Info()); err != nil {
			return err
		}
	}
	return opts.emit(trainOutput{Bank: bank.Info(), Path: opts.Out})
}
