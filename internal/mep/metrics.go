package mep

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	gokitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is shared by every metric this package exposes, mirroring
// the teacher's consensus.MetricsSubsystem convention.
const MetricsSubsystem = "mep"

// Metrics contains metrics exposed by this package, grounded on
// consensus/metrics.go's PrometheusMetrics/NopMetrics pattern.
type Metrics struct {
	// SlotsInUse is the current count of occupied connection slots, across
	// all live MEPs sharing this Metrics instance.
	SlotsInUse metrics.Gauge
	// ChannelsDisabled counts MEPs currently in the disabled state.
	ChannelsDisabled metrics.Gauge
	// ModifyChannelResults counts the outcomes of every traced channel
	// operation (CreateChannel, ModifyChannel*, Disable/EnableChannel,
	// DestroyChannel), labeled by result.
	ModifyChannelResults metrics.Counter
	// ModifyConnectionResults counts the outcomes of every traced
	// connection operation (CreateConnection, ModifyConnection,
	// DestroyConnection), labeled by result.
	ModifyConnectionResults metrics.Counter
	// CapacityExhausted counts CreateConnection and InsertConnection calls
	// that found this MEP's own slot table full.
	CapacityExhausted metrics.Counter
	// Deallocations counts completed Deallocate -> Commit sequences.
	Deallocations metrics.Counter
}

// PrometheusMetrics returns Metrics built using the Prometheus client
// library, labels optionally provided as ("name", "value") pairs.
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	resultLabels := append(append([]string{}, labels...), "result")

	return &Metrics{
		SlotsInUse: gokitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "slots_in_use",
			Help:      "Number of occupied connection slots.",
		}, labels).With(labelsAndValues...),
		ChannelsDisabled: gokitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "channels_disabled",
			Help:      "Number of MEPs with their channel administratively disabled.",
		}, labels).With(labelsAndValues...),
		ModifyChannelResults: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "modify_channel_results_total",
			Help:      "Count of channel operation outcomes by result.",
		}, resultLabels).With(labelsAndValues...),
		ModifyConnectionResults: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "modify_connection_results_total",
			Help:      "Count of connection operation outcomes by result.",
		}, resultLabels).With(labelsAndValues...),
		CapacityExhausted: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "capacity_exhausted_total",
			Help:      "Count of CreateConnection/InsertConnection calls that found no free slot.",
		}, labels).With(labelsAndValues...),
		Deallocations: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "deallocations_total",
			Help:      "Count of completed Deallocate sequences.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns Metrics that discard everything, for use when no
// Prometheus registry is configured (e.g. in unit tests).
func NopMetrics() *Metrics {
	return &Metrics{
		SlotsInUse:              discard.NewGauge(),
		ChannelsDisabled:        discard.NewGauge(),
		ModifyChannelResults:    discard.NewCounter(),
		ModifyConnectionResults: discard.NewCounter(),
		CapacityExhausted:       discard.NewCounter(),
		Deallocations:           discard.NewCounter(),
	}
}
