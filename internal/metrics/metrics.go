// Package metrics declares the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts card scans by outcome: the accepted kind or the rejection reason.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolattend",
		Name:      "scans_total",
		Help:      "Card scans by outcome.",
	}, []string{"outcome"})

	// ScanErrors counts scans that failed because the store was unavailable.
	ScanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolattend",
		Name:      "scan_errors_total",
		Help:      "Card scans that failed on the store.",
	})

	// Notifications counts notification jobs by type and result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolattend",
		Name:      "notifications_total",
		Help:      "Notification jobs by type and result.",
	}, []string{"type", "result"})

	// Exports counts generated spreadsheets.
	Exports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolattend",
		Name:      "exports_total",
		Help:      "Spreadsheet exports generated.",
	})

	// ExportWarnings counts persons left out of exports for missing roster entries.
	ExportWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolattend",
		Name:      "export_warnings_total",
		Help:      "Persons missing from the roster during export.",
	})

	// LiveClients tracks connected activity websocket clients.
	LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "schoolattend",
		Name:      "live_clients",
		Help:      "Connected live activity clients.",
	})
)
