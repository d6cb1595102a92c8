// Package main is the entry point for the hash delivery server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ASHISH26940/hashdelivery/internal/admin"
	"github.com/ASHISH26940/hashdelivery/internal/config"
	"github.com/ASHISH26940/hashdelivery/internal/logsink"
	"github.com/ASHISH26940/hashdelivery/internal/metrics"
	"github.com/ASHISH26940/hashdelivery/internal/server"
	"github.com/ASHISH26940/hashdelivery/internal/store"
	"github.com/google/gops/agent"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err unless run already logged it.
func reportError(w io.Writer, err error) {
	var bindErr *server.BindError
	if errors.As(err, &bindErr) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// flags holds the command line overrides.
type flags struct {
	configFile string
	ip         string
	port       int
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "hashdelivery",
		Short:         "Serve an in-memory key/hash store over TCP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(f, cmd.Flags().Changed("ip"), cmd.Flags().Changed("port"))
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to a TOML or YAML config file")
	cmd.Flags().StringVarP(&f.ip, "ip", "i", "127.0.0.1", "IP address to listen on")
	cmd.Flags().IntVarP(&f.port, "port", "p", 8888, "TCP port to listen on")
	return cmd
}

// resolveConfig applies defaults, then the config file, then any flag
// the user set explicitly.
func resolveConfig(f flags, ipSet, portSet bool) (*config.Config, error) {
	cfg := config.New()
	if f.configFile != "" {
		if err := cfg.Load(f.configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if ipSet {
		if net.ParseIP(f.ip) == nil {
			return nil, fmt.Errorf("invalid ip address %q", f.ip)
		}
		cfg.Host = f.ip
	}
	if portSet {
		cfg.Port = f.port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.Log, out *os.File) hclog.Logger {
	color := hclog.ColorOff
	switch cfg.Color {
	case "always":
		color = hclog.ForceColor
	case "auto":
		if isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()) {
			color = hclog.ForceColor
		}
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "hashdelivery",
		Level:      hclog.LevelFromString(cfg.Level),
		Output:     out,
		JSONFormat: cfg.JSON,
		Color:      color,
	})
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log, os.Stdout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Diagnostics {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warn("failed to start gops agent", "error", err)
		} else {
			defer agent.Close()
		}
	}

	// --- Store and metrics ---
	st, err := store.NewSharded(cfg.Shards)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg, st.Size)
	if err != nil {
		return err
	}

	// --- Log sink, drained after every handler has returned ---
	sink := logsink.New(logger.Named("sink"))

	srv := server.New(cfg.Addr(), st, sink,
		server.WithGreetingName(cfg.StudentName),
		server.WithIdleTimeout(time.Duration(cfg.IdleTimeout)),
		server.WithMetrics(m),
		server.WithLogger(logger.Named("server")),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.ListenAndServe(gctx)
		var bindErr *server.BindError
		if errors.As(err, &bindErr) {
			logger.Error("Can't start the server", "addr", bindErr.Addr, "error", bindErr.Err)
		}
		return err
	})

	if cfg.AdminAddr != "" {
		httpServer := &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           admin.New(st, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
		logger.Info("starting admin server", "addr", cfg.AdminAddr)
		g.Go(func() error {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	sink.Close()
	logger.Info("server stopped")
	return err
}
