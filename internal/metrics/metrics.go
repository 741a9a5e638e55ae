package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters exported at /metrics alongside the default collectors.
var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_sessions_started_total",
		Help: "Attendance sessions opened by teachers.",
	})
	SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_sessions_ended_total",
		Help: "Attendance sessions closed by teachers.",
	})
	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_attendance_marked_total",
		Help: "Successful mark-present calls, repeats included.",
	})
	UnauthorizedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classattend_unauthorized_requests_total",
		Help: "Requests rejected by the auth guards with 401.",
	})
)
