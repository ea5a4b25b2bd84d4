package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/koscakluka/ema-realtime/core/conversations"
	"github.com/koscakluka/ema-realtime/core/persistence/firestore"
	"github.com/koscakluka/ema-realtime/core/persistence/webhook"
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// startMetricsServer binds addr before returning so a busy port is reported
// to the caller instead of the serving goroutine.
func startMetricsServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return server, nil
}

// newTurnSink builds the persistence collaborators enabled in cfg. The
// returned sink is nil when none is.
func newTurnSink(ctx context.Context, cfg config.PersistenceConfig) (conversations.TurnSink, func() error, error) {
	var sinks conversations.MultiSink
	closeAll := func() error { return nil }

	if cfg.Webhook.URL != "" {
		opts := []webhook.SinkOption{webhook.WithTimeout(cfg.Webhook.Timeout)}
		for key, value := range cfg.Webhook.Headers {
			opts = append(opts, webhook.WithHeader(key, value))
		}
		sink, err := webhook.NewSink(cfg.Webhook.URL, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create webhook sink: %w", err)
		}
		sinks = append(sinks, sink)
	}

	if cfg.Firestore.Enabled {
		sink, err := firestore.NewSink(ctx,
			firestore.WithProjectID(cfg.Firestore.ProjectID),
			firestore.WithCredentialsFile(cfg.Firestore.CredentialsFile),
			firestore.WithCollection(cfg.Firestore.Collection),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore sink: %w", err)
		}
		sinks = append(sinks, sink)
		closeAll = sink.Close
	}

	if len(sinks) == 0 {
		return nil, closeAll, nil
	}
	return sinks, closeAll, nil
}
