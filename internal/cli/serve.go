package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/weldsim/internal/registry"
	"github.com/YuminosukeSato/weldsim/internal/server"
	"github.com/YuminosukeSato/weldsim/pkg/log"
	"github.com/YuminosukeSato/weldsim/sklearn/drift"
	"github.com/YuminosukeSato/weldsim/weld"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	bankFlags
	Addr         string
	AllowRetrain bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train or load a model bank and serve the HTTP API",
		Long: `Start the HTTP API (/model_info, /predict, /simulate, /health).

The model bank is loaded from --bank, or trained from synthetic data before
the server starts listening. A training failure exits without listening.

Example:
  weldsim serve --addr :8080
  weldsim serve --bank bank.gob --allow-retrain`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				opts.cfg.Server.Addr = opts.Addr
			}
			if cmd.Flags().Changed("allow-retrain") {
				opts.cfg.Server.AllowRetrain = opts.AllowRetrain
			}
			return runServe(cmd.Context(), opts)
		},
	}

	opts.bankFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, :5000)")
	cmd.Flags().BoolVar(&opts.AllowRetrain, "allow-retrain", false, "enable POST /retrain")

	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bank, err := opts.loadBank(ctx, opts.path)
	if err != nil {
		opts.logger.Error("failed to prepare model bank", err, log.ErrorKindKey, weld.ErrorKind(err))
		return err
	}

	svcOpts := []weld.ServiceOption{weld.WithServiceLogger(opts.logger.With(log.ComponentKey, "weld.service"))}
	srvOpts := []server.Option{server.WithLogger(opts.logger.With(log.ComponentKey, "server"))}
	if delta := opts.cfg.Server.DriftDelta; delta > 0 {
		monitor, err := drift.NewADWIN(drift.WithDelta(delta))
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, weld.WithDriftMonitor(monitor))
		srvOpts = append(srvOpts, server.WithDrift(monitor))
	}
	svc := weld.NewService(bank, svcOpts...)

	if opts.cfg.Registry.DB != "" {
		reg, err := registry.Open(opts.cfg.Registry.DB)
		if err != nil {
			return err
		}
		defer reg.Close()
		if opts.path == "" && opts.cfg.Bank.Path == "" {
			if err := reg.Record(ctx, bank.Info()); err != nil {
				opts.logger.Warn("failed to record training run", err)
			}
		}
		srvOpts = append(srvOpts, server.WithRecorder(reg))
	}

	if addr := opts.cfg.Redis.Addr; addr != "" {
		client := server.NewRedisClient(addr, opts.cfg.Redis.DB)
		defer client.Close()
		srvOpts = append(srvOpts, server.WithRateLimiter(server.NewRateLimiter(server.RateLimiterConfig{
			Store:  client,
			Limit:  opts.cfg.Redis.Limit,
			Window: opts.cfg.Redis.Window,
			Logger: opts.logger.With(log.ComponentKey, "ratelimit"),
		})))
	}

	return server.New(svc, opts.cfg, srvOpts...).Run(ctx)
}
