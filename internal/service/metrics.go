// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wneessen/geonamer/internal/logger"
)

const metricsShutdownTimeout = 5 * time.Second

func (s *Service) metricsHandler() stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// startMetricsServer serves the pipeline metrics in the background and returns a function
// that shuts the server down.
func (s *Service) startMetricsServer() func() {
	srv := &stdhttp.Server{
		Addr:         s.config.Metrics.Listen,
		Handler:      s.metricsHandler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		s.logger.Info("metrics server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			s.logger.Error("metrics server failed", logger.Err(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shut down metrics server", logger.Err(err))
		}
	}
}
