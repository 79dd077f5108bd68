// Package metrics exposes Prometheus counters for certificate and key-share
// operations and runs the standalone metrics listener.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CertificatesStored counts successfully persisted certificates.
	CertificatesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestry_certificates_stored_total",
		Help: "Number of certificates accepted and persisted",
	})

	// CertificatesRejected counts certificates refused at submission, by
	// reason.
	CertificatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestry_certificates_rejected_total",
		Help: "Number of certificate submissions rejected",
	}, []string{"reason"})

	// VerificationsTotal counts verification requests by outcome.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestry_verifications_total",
		Help: "Number of certificate verifications performed",
	}, []string{"outcome"})

	// SharesReleased counts key shares released to requesters.
	SharesReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attestry_key_shares_released_total",
		Help: "Number of key shares released after policy checks",
	})

	// SharesDenied counts share requests refused, by reason.
	SharesDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestry_key_shares_denied_total",
		Help: "Number of key share requests denied",
	}, []string{"reason"})

	serviceInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "attestry_service_info",
		Help: "Constant gauge labeled with the running service name",
	}, []string{"service"})
)

// MetricsServer serves the Prometheus scrape endpoint on its own listener.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server bound to addr.
func New(appName, addr string) (*MetricsServer, error) {
	serviceInfo.WithLabelValues(appName).Set(1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}, nil
}

// ListenAndServe runs the metrics listener until shutdown.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics listener.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
