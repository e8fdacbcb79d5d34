// Command podrun is the per-pod process entrypoint: it bootstraps
// configuration, logging, tracing, and metrics, registers the built-in
// agents, and hands control to the Runner, wiring OS signals to a
// cancellable context for graceful shutdown. Grounded on the teacher's
// cmd/worker/main.go and cmd/server/main.go bootstrap shape (config.Load,
// observability.SetupLogger/SetupTracing, a dedicated metrics server
// goroutine, signal.Notify shutdown).
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/langstream-go/pod-runtime/internal/agents/dedupe"
	"github.com/langstream-go/pod-runtime/internal/agents/pgsink"
	"github.com/langstream-go/pod-runtime/internal/config"
	"github.com/langstream-go/pod-runtime/internal/healthserver"
	"github.com/langstream-go/pod-runtime/internal/messaging/redpanda"
	"github.com/langstream-go/pod-runtime/internal/observability"
	"github.com/langstream-go/pod-runtime/internal/registry"
	"github.com/langstream-go/pod-runtime/internal/runtime/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(observability.LogConfig{
		Env:      cfg.AppEnv,
		LogLevel: cfg.LogLevel,
		Service:  cfg.ServiceName,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.SetupTracing(ctx, observability.TracingConfig{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRatio:  cfg.OTELSampleRatio,
	})
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	var loopHealthy bool
	go func() {
		handler := healthserver.NewRouter(reg, func() error {
			if !loopHealthy {
				return context.DeadlineExceeded
			}
			return nil
		})
		addr := ":" + strconv.Itoa(cfg.MetricsPort)
		srv := healthserver.Serve(addr, handler)
		slog.Info("health/metrics server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health/metrics server error", slog.Any("error", err))
		}
	}()

	agentRegistry := registry.New()
	agentRegistry.Register(dedupe.ClassName, dedupe.New)
	agentRegistry.Register(pgsink.ClassName, pgsink.New)

	pipelineCfg, err := config.LoadPipeline(cfg.PipelinePath)
	if err != nil {
		slog.Error("pipeline config load failed", slog.Any("error", err), slog.String("path", cfg.PipelinePath))
		os.Exit(1)
	}

	r := &runner.Runner{
		Topics:   redpanda.New(),
		Registry: agentRegistry,
		Metrics:  metrics,
	}

	loopHealthy = true
	slog.Info("pod runtime starting", slog.String("agent_id", pipelineCfg.Agent.AgentIdentity()))
	if err := r.Run(ctx, pipelineCfg, nil, runner.RunForever); err != nil {
		loopHealthy = false
		slog.Error("pod runtime exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("pod runtime stopped")
}
