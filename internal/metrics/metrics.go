// Package metrics exposes the Prometheus collectors for the mascot engine
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LiveTasks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cortexmascot_scheduler_live_tasks",
			Help: "Number of scheduled tasks currently registered per engine and manager",
		},
		[]string{"instance", "manager"},
	)

	TaskPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_scheduler_task_panics_total",
			Help: "Scheduled callbacks that panicked and were recovered",
		},
		[]string{"task"},
	)

	Reactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_reactions_total",
			Help: "Expressions shown, by source and expression",
		},
		[]string{"source", "expression"},
	)

	RejectedExpressions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_rejected_expressions_total",
			Help: "Expression requests rejected, by reason",
		},
		[]string{"reason"},
	)

	EmotionSchedules = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_emotion_schedules_total",
			Help: "Text samples analyzed, by outcome",
		},
		[]string{"outcome"},
	)

	ColorTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_color_transitions_total",
			Help: "Color transitions started, by mode",
		},
		[]string{"mode"},
	)

	SyncRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cortexmascot_sync_requests_total",
			Help: "Outbound state-sync calls, by result",
		},
		[]string{"result"},
	)

	MirrorClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cortexmascot_mirror_clients",
			Help: "Connected websocket mirror clients",
		},
	)
)
