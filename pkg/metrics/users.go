package metrics

import "github.com/prometheus/client_golang/prometheus"

// UserMetrics counts user service calls by operation and outcome code.
type UserMetrics struct {
	operations *prometheus.CounterVec
}

func NewUserMetrics(reg prometheus.Registerer) *UserMetrics {
	if reg == nil {
		return &UserMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "user_operations_total",
		Help: "User service calls by operation and outcome.",
	}, []string{"operation", "outcome"})
	reg.MustRegister(operations)
	return &UserMetrics{operations: operations}
}

// ObserveUserOperation increments the counter for operation/outcome.
func (u *UserMetrics) ObserveUserOperation(operation, outcome string) {
	if u == nil || u.operations == nil {
		return
	}
	u.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}
