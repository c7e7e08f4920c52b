package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/graph-gophers/graphql-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recetario/recetario/internal/config"
	"github.com/recetario/recetario/internal/log"
	"github.com/recetario/recetario/internal/metrics"
	"github.com/recetario/recetario/internal/recetario"
	"github.com/recetario/recetario/internal/server"
	"github.com/recetario/recetario/internal/store"
	"github.com/recetario/recetario/internal/store/memstore"
	"github.com/recetario/recetario/internal/store/mongostore"
	"github.com/recetario/recetario/internal/tracing"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(v, file)
			if err != nil {
				return err
			}
			logger, err := log.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":4000", "Address to listen on.")
	flags.String("endpoint", "/", "Path of the GraphQL endpoint.")
	flags.Bool("playground", true, "Serve GraphQL Playground to browsers.")
	flags.String("store", "mongo", "Document store, one of [mongo, memory].")
	flags.String("mongo_uri", "", "MongoDB connection string. Overrides the scheme, user, password and host settings.")
	flags.String("log_level", "info", "Log level.")
	flags.String("log_format", "json", "Log format, one of [json, console].")
	bindFlags(cmd, v, map[string]string{
		"addr":       "server.addr",
		"endpoint":   "server.endpoint",
		"playground": "server.playground",
		"store":      "store.driver",
		"mongo_uri":  "mongo.uri",
		"log_level":  "log.level",
		"log_format": "log.format",
	})
	return cmd
}

// app holds everything serve builds from the configuration.
type app struct {
	handler http.Handler
	store   store.Store
	tracing tracing.ShutdownFunc
}

func (a *app) close(ctx context.Context, logger *zap.Logger) {
	if err := a.tracing(ctx); err != nil {
		logger.Warn("flushing traces", zap.Error(err))
	}
	if err := a.store.Close(ctx); err != nil {
		logger.Warn("closing store", zap.Error(err))
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	tr, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var st store.Store
	switch cfg.Store.Driver {
	case "memory":
		st = memstore.New()
	default:
		st, err = mongostore.Connect(ctx, cfg.Mongo, m.CommandMonitor())
		if err != nil {
			_ = shutdownTracing(ctx)
			return nil, err
		}
	}

	opts := []graphql.SchemaOpt{
		graphql.Logger(&log.PanicLogger{Logger: logger}),
		graphql.MaxParallelism(cfg.GraphQL.MaxParallelism),
	}
	if cfg.GraphQL.MaxDepth > 0 {
		opts = append(opts, graphql.MaxDepth(cfg.GraphQL.MaxDepth))
	}
	if tr != nil {
		opts = append(opts, graphql.Tracer(tr))
	}
	schema, err := recetario.NewSchema(st, logger, opts...)
	if err != nil {
		_ = st.Close(ctx)
		_ = shutdownTracing(ctx)
		return nil, errors.Wrap(err, "parsing schema")
	}

	h := server.New(schema, st, logger, server.Options{
		Endpoint:    cfg.Server.Endpoint,
		Playground:  cfg.Server.Playground,
		CORSOrigins: cfg.Server.CORSOrigins,
		BatchWait:   cfg.GraphQL.BatchWait,
		Metrics:     m,
	})
	return &app{handler: h, store: st, tracing: shutdownTracing}, nil
}

// serve runs the server until ctx is cancelled, then drains in-flight
// requests for at most cfg.Server.ShutdownTimeout.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.close(context.Background(), logger)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Error("listening", zap.String("addr", cfg.Server.Addr), zap.Error(err))
		return errors.Wrap(err, "listening")
	}
	srv := &http.Server{Handler: a.handler}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	logger.Info("server ready",
		zap.String("url", "http://"+ln.Addr().String()+cfg.Server.Endpoint),
		zap.String("store", cfg.Store.Driver),
	)

	select {
	case err := <-errc:
		logger.Error("server stopped", zap.Error(err))
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}
