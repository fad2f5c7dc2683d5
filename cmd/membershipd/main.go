// membershipd serves the membership HTTP API.
//
// It loads the YAML configuration named by --config (or
// $MEMBERSHIP_CONFIG), opens the configured store, starts the engine and
// listens until interrupted. Prometheus metrics, the audit trail and the
// Kafka and RabbitMQ event publishers are enabled from the configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/api"
	audithook "github.com/xraph/membership/audit_hook"
	"github.com/xraph/membership/internal/appconfig"
	"github.com/xraph/membership/observability"
	"github.com/xraph/membership/publish/kafka"
	"github.com/xraph/membership/publish/rabbitmq"
	"github.com/xraph/membership/store/driver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, listen string

	flagSet := pflag.NewFlagSet("membershipd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (default: $MEMBERSHIP_CONFIG)")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address (overrides the config file)")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := driver.Open(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	opts := []membership.Option{
		membership.WithLogger(logger),
		membership.WithPluginTimeout(cfg.PluginTimeout),
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg, cfg.Metrics.Namespace))
		opts = append(opts, membership.WithPlugin(metrics))
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	if cfg.Audit.Enabled {
		recorder := audithook.RecorderFunc(func(ctx context.Context, ev *audithook.AuditEvent) error {
			logger.LogAttrs(ctx, slog.LevelInfo, "audit",
				slog.String("action", ev.Action),
				slog.String("resource", ev.Resource),
				slog.String("resource_id", ev.ResourceID),
				slog.String("outcome", ev.Outcome),
				slog.Any("metadata", ev.Metadata),
			)
			return nil
		})
		auditOpts := []audithook.Option{audithook.WithLogger(logger)}
		if len(cfg.Audit.Actions) > 0 {
			auditOpts = append(auditOpts, audithook.WithEnabledActions(cfg.Audit.Actions...))
		}
		opts = append(opts, membership.WithPlugin(audithook.New(recorder, auditOpts...)))
	}

	if k := cfg.Publish.Kafka; len(k.Brokers) > 0 {
		opts = append(opts, membership.WithPlugin(kafka.New(k.Topic, k.Brokers...).WithLogger(logger)))
	}

	if r := cfg.Publish.RabbitMQ; r.URL != "" {
		pub, err := rabbitmq.Dial(r.URL, r.Exchange)
		if err != nil {
			_ = st.Close()
			return err
		}
		opts = append(opts, membership.WithPlugin(pub.WithLogger(logger)))
	}

	eng, err := membership.New(cfg.Collection, st, opts...)
	if err != nil {
		_ = st.Close()
		return err
	}
	if err := eng.Start(ctx); err != nil {
		_ = eng.Stop()
		return err
	}

	mux.Handle("/", api.New(eng, cfg.BasePath, api.WithLogger(logger)))
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("membershipd listening",
			"addr", cfg.Listen,
			"base_path", cfg.BasePath,
			"store", cfg.Store.Name(),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		logger.Info("membershipd shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	return errors.Join(err, eng.Stop())
}
