// Package metrics содержит счётчики Prometheus сервиса аккаунтов.
// Экспортируются через /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal количество регистраций по результату.
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laset_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// LoginsTotal количество входов по результату.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laset_logins_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// HWIDMismatchesTotal количество зафиксированных несовпадений HWID.
	HWIDMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "laset_hwid_mismatches_total",
			Help: "Total number of HWID mismatches detected",
		},
	)

	// AdminActionsTotal количество действий администраторов по виду.
	AdminActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "laset_admin_actions_total",
			Help: "Total number of admin console actions",
		},
		[]string{"action"},
	)
)
