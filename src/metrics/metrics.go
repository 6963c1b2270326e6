// Package metrics exposes watcher counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"buildwatch-agent/src/watch"
)

// Collectors holds the watcher's Prometheus collectors. A nil *Collectors is
// valid and records nothing.
type Collectors struct {
	Polls   *prometheus.CounterVec
	Watches *prometheus.CounterVec
	Elapsed *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildwatch",
			Name:      "polls_total",
			Help:      "Status queries issued against a CI provider.",
		}, []string{"provider"}),
		Watches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "buildwatch",
			Name:      "watches_total",
			Help:      "Completed watches by outcome.",
		}, []string{"provider", "outcome"}),
		Elapsed: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "buildwatch",
			Name:      "watch_elapsed_seconds",
			Help:      "Simulated time spent polling before a watch ended.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"provider"}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.Polls, c.Watches, c.Elapsed} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// ObservePoll counts one status query.
func (c *Collectors) ObservePoll(providerName string) {
	if c == nil {
		return
	}
	c.Polls.WithLabelValues(providerName).Inc()
}

// ObserveResult records the outcome and duration of a finished watch.
func (c *Collectors) ObserveResult(providerName string, result watch.Result) {
	if c == nil {
		return
	}
	c.Watches.WithLabelValues(providerName, result.Outcome()).Inc()
	c.Elapsed.WithLabelValues(providerName).Observe(result.Elapsed.Seconds())
}

var _ watch.Metrics = (*Collectors)(nil)
