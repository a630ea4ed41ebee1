package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledgerpay",
		Name:      "payment_outcomes_total",
		Help:      "Payment operations by flow and outcome code.",
	}, []string{"flow", "outcome"})

	ledgerSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledgerpay",
		Name:      "ledger_submissions_total",
		Help:      "Signed blobs submitted to the ledger by leg and engine result.",
	}, []string{"leg", "engine_result"})

	gatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ledgerpay",
		Name:      "gateway_request_seconds",
		Help:      "Latency of calls to the ledger node and the wallet provider.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway", "operation", "result"})
)

const (
	flowCustodial    = "custodial"
	flowNonCustodial = "non_custodial"
	flowBatch        = "non_custodial_batch"
	flowConfirm      = "confirm"
	flowConfirmBatch = "confirm_batch"
)

func observeGateway[T any](gateway, operation string, call func() (T, error)) (T, error) {
	start := time.Now()
	out, err := call()
	result := "ok"
	if err != nil {
		result = "error"
	}
	gatewayLatency.WithLabelValues(gateway, operation, result).Observe(time.Since(start).Seconds())
	return out, err
}

func observeLedger[T any](operation string, call func() (T, error)) (T, error) {
	return observeGateway("ledger", operation, call)
}

func observeWallet[T any](operation string, call func() (T, error)) (T, error) {
	return observeGateway("wallet", operation, call)
}

func recordOutcome(flow string, err error) {
	if err == nil {
		paymentOutcomes.WithLabelValues(flow, "success").Inc()
		return
	}
	paymentOutcomes.WithLabelValues(flow, AsError(err).Code).Inc()
}
