package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_submissions_total",
			Help: "Total number of task submissions issued per flow",
		},
		[]string{"flow"},
	)

	SubmissionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_submission_failures_total",
			Help: "Total number of task submissions that failed before polling began",
		},
		[]string{"flow"},
	)

	StatusPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_status_polls_total",
			Help: "Total number of status polls issued per flow",
		},
		[]string{"flow"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_tasks_completed_total",
			Help: "Total number of tasks that reached COMPLETED",
		},
		[]string{"flow"},
	)

	TasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "client_tasks_failed_total",
			Help: "Total number of tasks that ended in a failure, by category",
		},
		[]string{"flow", "category"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "client_task_duration_seconds",
			Help: "Wall time from submission to terminal state in seconds",
		},
		[]string{"flow"},
	)
)
