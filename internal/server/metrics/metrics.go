// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess      = "success"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeInvalid      = "invalid"
	OutcomeExpired      = "expired"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
	OutcomeDropped      = "dropped"
)

// AuthOperations counts auth service calls by operation and outcome.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "skeleton_auth_operations_total",
		Help: "Total number of auth service operations",
	},
	[]string{"operation", "outcome"},
)

// GateRejections counts requests turned away by the session gate.
var GateRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "skeleton_gate_rejections_total",
		Help: "Total number of requests rejected by the session gate",
	},
	[]string{"transport", "outcome"},
)

// MailDeliveries counts mail messages by template and outcome.
var MailDeliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "skeleton_mail_deliveries_total",
		Help: "Total number of mail messages handled by the postman",
	},
	[]string{"template", "outcome"},
)

// RegisterMetrics registers the collectors with reg. Panics if
// registration fails.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(GateRejections)
	reg.MustRegister(MailDeliveries)
}

func RecordAuthOperation(operation, outcome string) {
	AuthOperations.WithLabelValues(operation, outcome).Inc()
}

func RecordGateRejection(transport, outcome string) {
	GateRejections.WithLabelValues(transport, outcome).Inc()
}

func RecordMailDelivery(template, outcome string) {
	MailDeliveries.WithLabelValues(template, outcome).Inc()
}
