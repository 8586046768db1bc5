package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.ObserveTransaction("input", "ok")
	collector.IncRetry("timeout")
	collector.IncDecodeFailure("voltage")
}

func TestPrometheusCollectorRegistersAndReusesCounters(t *testing.T) {
	metricsLock.Lock()
	shared = nil
	metricsLock.Unlock()

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.ObserveTransaction("input", "ok")
	collector.IncRetry("disconnected")
	collector.IncRetry("disconnected")

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector, again)
	again.IncDecodeFailure("serial_number")

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	requireCounterValue(t, byName["smh_meter_transactions_total"], 1)
	requireCounterValue(t, byName["smh_meter_retries_total"], 2)
	requireCounterValue(t, byName["smh_meter_decode_failures_total"], 1)
}

func TestPrometheusCollectorReusesExistingRegistration(t *testing.T) {
	metricsLock.Lock()
	shared = nil
	metricsLock.Unlock()

	reg := prometheus.NewRegistry()
	first, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	metricsLock.Lock()
	shared = nil
	metricsLock.Unlock()

	second, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, first.transactions, second.transactions)
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.NotNil(t, mf)
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}
