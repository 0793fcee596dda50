// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry all collectors of this package are registered in.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	OTPsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_otps_sent_total",
			Help: "Total number of one-time codes issued.",
		},
		[]string{"flow"},
	)

	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_verifications_total",
			Help: "Total number of account verification attempts by result.",
		},
		[]string{"result"},
	)

	ApprovalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_owner_approvals_total",
			Help: "Total number of owner approval requests by outcome.",
		},
		[]string{"outcome"},
	)

	GateDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_gate_denials_total",
			Help: "Total number of requests refused because of the account status.",
		},
		[]string{"status"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_notifications_total",
			Help: "Total number of notifications dispatched.",
		},
		[]string{"kind", "result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		OTPsSentTotal,
		VerificationsTotal,
		ApprovalsTotal,
		GateDenialsTotal,
		LoginsTotal,
		NotificationsTotal,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
