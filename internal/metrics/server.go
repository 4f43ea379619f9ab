package metrics

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feescope/feescope/internal/metrics/collectors"
)

// CreateMetricsServer exposes the recorder's fee snapshot on /metrics and
// starts serving in the background. The returned server is already listening
// on addr; the caller owns its shutdown.
func CreateMetricsServer(recorder *Recorder, addr string) (*http.Server, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewFeeWindowCollector(recorder.Snapshot)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: listener.Addr().String(), Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Metrics server listening", "address", server.Addr)

	return server, nil
}
