package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/heysubinoy/pyazkv/internal/api"
	"github.com/heysubinoy/pyazkv/internal/logging"
	"github.com/heysubinoy/pyazkv/internal/pubsub"
	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/internal/store"
	"github.com/heysubinoy/pyazkv/pkg/config"
	"github.com/heysubinoy/pyazkv/pkg/kvrpc"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, "app", cfg.AppName, "env", cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

	// Pick the backend once; it is never swapped afterwards.
	sel, err := store.Select(ctx, store.SelectOptions{
		Redis: store.RedisOptions{
			Host:        cfg.Redis.Host,
			Port:        cfg.Redis.Port,
			DB:          cfg.Redis.DB,
			Password:    cfg.Redis.Password,
			DialTimeout: cfg.Redis.DialTimeout,
		},
		FailFast: cfg.Backend.FailFast,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer sel.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	instrumented, err := store.NewInstrumentedStore(sel.Store(), reg)
	if err != nil {
		return fmt.Errorf("register store metrics: %w", err)
	}
	rt := router.New(instrumented, logger)

	// HTTP
	m := mux.NewRouter()
	api.NewServer(rt, logger).RegisterRoutes(m)
	api.RegisterMetrics(m, sel, instrumented, reg)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           m,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// gRPC
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	grpcServer := grpc.NewServer()
	kvrpc.RegisterKVServiceServer(grpcServer, api.NewGRPCServer(rt))

	// NATS
	var (
		conn *nats.Conn
		sub  *pubsub.Subscriber
	)
	if cfg.NATS.URL != "" {
		conn, err = pubsub.Connect(cfg.NATS.URL, pubsub.ConnectOptions{Name: cfg.NATS.Name, Logger: logger})
		if err != nil {
			// The synchronous surfaces keep serving without it.
			logger.Error("nats unavailable, asynchronous ingress not started", "error", err)
		} else {
			defer conn.Close()
			sub = pubsub.NewSubscriber(conn, cfg.NATS.Subject, pubsub.NewDispatcher(rt, logger), logger)
			if err := sub.Start(ctx); err != nil {
				logger.Error("nats subscribe failed", "subject", cfg.NATS.Subject, "error", err)
				sub = nil
			}
		}
	} else {
		logger.Info("nats disabled, asynchronous ingress not started")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if sub != nil {
			if err := sub.Stop(); err != nil {
				logger.Warn("stopping subscriber", "error", err)
			}
		}
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
