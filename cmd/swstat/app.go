package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swstat/pkg/client"
	"swstat/pkg/config"
	"swstat/pkg/emulator"
	"swstat/pkg/metrics"
	"swstat/pkg/netstack"
	"swstat/pkg/observability"
	"swstat/pkg/record"
	"swstat/pkg/render"
	"swstat/pkg/transport"
	"swstat/pkg/transport/mem"
)

// run is the main entry point after CLI parsing.
func run(ctx context.Context, opts *Options, cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(opts.ConfigPath, cmd.Flags())
	if err != nil {
		return errors.Wrap(err, "load config failed")
	}
	cfg.Server.Host = strings.TrimSpace(args[0])
	if cfg.Server.Host == "" {
		return errors.New("host must not be empty")
	}
	oneShot := len(args) == 2

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return errors.Wrap(err, "setup logger failed")
	}
	defer func() { _ = logger.Sync() }()
	zap.L().Debug("effective configuration", zap.Any("config", cfg))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if transport.ParseKind(cfg.Server.Transport) == transport.KindMem {
		if _, err := emulator.New().ListenMem(ctx, mem.Default, cfg.Server.Address()); err != nil {
			return errors.Wrap(err, "start emulator failed")
		}
	}

	ep, err := netstack.Open(ctx, cfg.Server.Transport, cfg.Server.Address())
	if err != nil {
		return errors.Wrap(err, "open endpoint failed")
	}

	cfgs := []client.Cfg{
		client.WithEndpoint(ep),
		client.WithInterval(cfg.Poll.Interval),
		client.WithOneShotTimeout(cfg.Poll.OneShotTimeout),
		client.WithRenderer(render.New(render.NewTerminal(opts.Stdout), oneShot)),
	}
	if oneShot {
		cfgs = append(cfgs, client.WithCommand(args[1]))
	}

	if cfg.Record.Path != "" {
		rec, err := record.Open(cfg.Record.Path, cfg.Record.Format)
		if err != nil {
			_ = ep.Close()
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				zap.L().Warn("close record file failed", zap.Error(err))
			}
		}()
		cfgs = append(cfgs, client.WithRecorder(rec))
	}

	if cfg.Metrics.Listen != "" {
		m := metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
		cfgs = append(cfgs, client.WithMetrics(m))
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				zap.L().Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	c, err := client.NewClient(cfgs...)
	if err != nil {
		_ = ep.Close()
		return errors.Wrap(err, "create client failed")
	}

	if !oneShot && !opts.Detach && opts.Stdin != nil {
		go func() {
			waitForEnter(opts.Stdin)
			zap.L().Debug("stdin closed or Enter pressed")
			cancel()
		}()
	}

	if err := c.Run(ctx); err != nil {
		return errors.Wrap(err, "run client failed")
	}
	return nil
}

// waitForEnter returns on the first newline or at end of input.
func waitForEnter(r io.Reader) {
	_, _ = bufio.NewReader(r).ReadString('\n')
}
