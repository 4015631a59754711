package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/therminator/therminator-go/cmd/therminator/interactive"
	"github.com/therminator/therminator-go/internal/config"
	"github.com/therminator/therminator-go/internal/logging"
	"github.com/therminator/therminator-go/pkg/log"
	"github.com/therminator/therminator-go/pkg/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the controller",
	Long: `Loads the configuration, starts the HTTP server, the relay supervisor and
the watchdog, and runs until interrupted. Every channel and the relay rail
are switched off on the way out.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolP("interactive", "i", false, "Run an interactive console")
	serveCmd.Flags().String("listen", "", "Override server.address")
	serveCmd.Flags().String("log-level", "", "Override log.level: debug, info, warn, error")
	serveCmd.Flags().String("event-log", "", "Override log.event_file")
}

// swapWriter lets the console take over log output once it exists.
type swapWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swapWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyServeOverrides(cmd, cfg); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	out := &swapWriter{w: os.Stderr}
	logger, err := logging.NewWriter(out, level, cfg.Log.Format)
	if err != nil {
		return err
	}

	events, closeEvents, err := newEventLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	ctrl, err := service.NewController(service.ControllerConfig{
		Settings:    cfg,
		Logger:      logger,
		EventLogger: events,
		OnReset: func() {
			logger.Error("watchdog expired, exiting")
			os.Exit(2)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	interactiveMode, _ := cmd.Flags().GetBool("interactive")
	if interactiveMode {
		console, err := interactive.New(ctrl)
		if err != nil {
			_ = ctrl.Stop()
			return err
		}
		out.set(console.Stderr())
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := ctrl.Stop(); err != nil {
		return fmt.Errorf("error stopping controller: %w", err)
	}
	return nil
}

func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if v, _ := flags.GetString("listen"); v != "" {
		cfg.Server.Address = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("event-log"); v != "" {
		cfg.Log.EventFile = v
	}
	return cfg.Validate()
}

// newEventLogger mirrors events to the operational log and,
// when configured, to a CBOR file.
func newEventLogger(cfg *config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	adapter := log.NewSlogAdapter(logger)
	if cfg.Log.EventFile == "" {
		return adapter, func() {}, nil
	}

	file, err := log.NewFileLogger(cfg.Log.EventFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	closeFn := func() {
		if n := file.Dropped(); n > 0 {
			logger.Warn("event log dropped events", "count", n)
		}
		if err := file.Close(); err != nil {
			logger.Error("failed to close event log", "error", err)
		}
	}
	return log.NewMultiLogger(adapter, file), closeFn, nil
}
