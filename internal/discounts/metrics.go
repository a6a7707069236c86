package discounts

import (
	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "discount_operations_total",
	Help: "Discount operations by outcome.",
}, []string{"op", "result"})

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsRejection(err):
		result = "rejected"
	case errors.Is(err, errSnapshotMoved):
		result = "conflict"
	default:
		result = "error"
	}
	operations.WithLabelValues(op, result).Inc()
}
