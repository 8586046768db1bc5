package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures bus events emitted by the access engine.
//
// Hooks run inline with every bus transaction, so implementations must be
// cheap and must not block.
type Collector interface {
	ObserveTransaction(bank, outcome string)
	IncRetry(reason string)
	IncDecodeFailure(key string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveTransaction(string, string) {}
func (noopCollector) IncRetry(string)                   {}
func (noopCollector) IncDecodeFailure(string)           {}

// PrometheusCollector exposes bus counters via Prometheus.
type PrometheusCollector struct {
	transactions   *prometheus.CounterVec
	retries        *prometheus.CounterVec
	decodeFailures *prometheus.CounterVec
}

var (
	metricsLock sync.Mutex
	shared      *PrometheusCollector
)

// NewPrometheusCollector registers the bus metrics with reg. Repeated calls
// return the collector registered first.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	metricsLock.Lock()
	defer metricsLock.Unlock()
	if shared != nil {
		return shared, nil
	}

	transactions, err := registerCounter(reg, prometheus.CounterOpts{
		Name: "smh_meter_transactions_total",
		Help: "Register block transactions per bank and outcome.",
	}, []string{"bank", "outcome"})
	if err != nil {
		return nil, err
	}
	retries, err := registerCounter(reg, prometheus.CounterOpts{
		Name: "smh_meter_retries_total",
		Help: "Rejected transaction attempts per reason.",
	}, []string{"reason"})
	if err != nil {
		return nil, err
	}
	decodeFailures, err := registerCounter(reg, prometheus.CounterOpts{
		Name: "smh_meter_decode_failures_total",
		Help: "Register values that failed to decode per catalog key.",
	}, []string{"key"})
	if err != nil {
		return nil, err
	}
	shared = &PrometheusCollector{
		transactions:   transactions,
		retries:        retries,
		decodeFailures: decodeFailures,
	}
	return shared, nil
}

func registerCounter(reg prometheus.Registerer, opts prometheus.CounterOpts, labels []string) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// ObserveTransaction counts one finished transaction.
func (c *PrometheusCollector) ObserveTransaction(bank, outcome string) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(bank, outcome).Inc()
}

// IncRetry counts one rejected attempt.
func (c *PrometheusCollector) IncRetry(reason string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(reason).Inc()
}

// IncDecodeFailure counts one value that could not be decoded.
func (c *PrometheusCollector) IncDecodeFailure(key string) {
	if c == nil {
		return
	}
	c.decodeFailures.WithLabelValues(key).Inc()
}
