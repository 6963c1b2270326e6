package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildwatch-agent/src/agent"
	"buildwatch-agent/src/broker"
	"buildwatch-agent/src/cmd/buildwatch/internal"
	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/metrics"
	"buildwatch-agent/src/pipeline"
	"buildwatch-agent/src/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the watch agent",
	Long: `Consume watch requests from the broker, watch each build and publish the
results. Redpanda is used when REDPANDA_BROKERS is set, NATS when NATS_URL
is set. Requests are recorded in Postgres when POSTGRES_DSN is set.

Prometheus metrics and /health are served on BUILDWATCH_METRICS_ADDR.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := current.log.WithField("component", "agent")
		cfg := current.cfg
		if n := viper.GetInt(internal.Key(cmd, "workers")); n > 0 {
			cfg.Workers = n
		}

		brk, brokerName, err := openBroker(log)
		if err != nil {
			return err
		}
		defer brk.Close()
		if brokerName == "memory" {
			log.Info("No REDPANDA_BROKERS or NATS_URL set; using in-memory broker (requests from other processes will not arrive)")
		}

		st, err := openStore(ctx, log)
		if err != nil {
			return err
		}
		defer st.Close()

		collectors, err := metrics.NewCollectors(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(nil),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Serving metrics on %s", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server error: %v", err)
			}
		}()
		defer srv.Close()

		opts := current.watchOptions(log)
		opts.Metrics = collectors
		runner := pipeline.NewRunner(cfg, nil, opts)

		log.Info("Starting watch agent (broker: %s, workers: %d)", brokerName, cfg.Workers)
		a := agent.NewAgent(brk, st, runner, log, cfg.Workers)
		if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent error: %w", err)
		}

		log.Info("Watch agent stopped")
		return nil
	},
}

func init() {
	internal.IntFlag(agentCmd, "workers", "Concurrent watches (overrides BUILDWATCH_WORKERS)", 0)
}

func openBroker(log logger.Logger) (broker.Broker, string, error) {
	brk, name, err := broker.Open(broker.Options{
		RedpandaBrokers: current.cfg.RedpandaBrokers,
		NATSURL:         current.cfg.NATSURL,
	}, log)
	if err != nil {
		return nil, name, fmt.Errorf("failed to create %s broker: %w", name, err)
	}
	return brk, name, nil
}

func openStore(ctx context.Context, log logger.Logger) (store.Store, error) {
	if current.cfg.PostgresDSN == "" {
		log.Debug("No POSTGRES_DSN set; keeping request records in memory")
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(ctx, current.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create Postgres store: %w", err)
	}
	return st, nil
}
