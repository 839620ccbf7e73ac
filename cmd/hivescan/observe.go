package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/hivescan/pkg/config"
	"github.com/ajitpratap0/hivescan/pkg/logger"
	"github.com/ajitpratap0/hivescan/pkg/observability"
)

// applyJobDefaults makes the job file the fallback for every global flag
// that is set neither on the command line nor in the environment.
func applyJobDefaults(v *viper.Viper, job *config.JobConfig) {
	v.SetDefault(flagLogLevel, job.Observability.LogLevel)
	v.SetDefault(flagLogFormat, job.Observability.LogFormat)
	v.SetDefault(flagMetricsAddr, job.Observability.MetricsAddr)
	v.SetDefault(flagTrace, job.Observability.Trace)
}

// setupObservability initialises logging, the metrics endpoint and tracing.
// The returned function stops the metrics server and flushes spans.
func setupObservability(ctx context.Context, v *viper.Viper, job *config.JobConfig) (func(), error) {
	if err := logger.Init(logger.Config{
		Level:    v.GetString(flagLogLevel),
		Encoding: v.GetString(flagLogFormat),
	}); err != nil {
		return nil, err
	}
	log := logger.Get()

	var shutdowns []func(context.Context) error

	if addr := v.GetString(flagMetricsAddr); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", addr))
		shutdowns = append(shutdowns, srv.Shutdown)
	}

	if v.GetBool(flagTrace) {
		cfg := observability.DefaultTracingConfig()
		cfg.ServiceVersion = version
		cfg.SamplingRate = job.Observability.TraceSamplingRate
		shutdown, err := observability.InitTracing(ctx, cfg)
		if err != nil {
			return nil, err
		}
		shutdowns = append(shutdowns, shutdown)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil {
				log.Warn("shutdown failed", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}, nil
}
