// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datapub

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "juju_datapub"

const (
	requestKindBroadcast = "broadcast"
	requestKindTargeted  = "targeted"

	failureReasonResolution = "resolution"
	failureReasonObserver   = "observer"
)

// Collector is a prometheus.Collector that collects metrics about the
// change publisher. The queue depth gauge is the observable for the
// deliberate unbounded-queue trade-off: a depth that keeps growing means
// observers cannot keep up with publish traffic.
type Collector struct {
	queueDepth    prometheus.Gauge
	requests      *prometheus.CounterVec
	notifications prometheus.Counter
	failures      *prometheus.CounterVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "queue_depth",
				Help:      "The number of publish requests waiting to be dispatched.",
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "The number of publish requests accepted.",
			}, []string{"kind"},
		),
		notifications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "notifications_total",
				Help:      "The number of observer notifications delivered.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "failures_total",
				Help:      "The number of dispatch failures, by reason.",
			}, []string{"reason"},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.queueDepth.Describe(ch)
	c.requests.Describe(ch)
	c.notifications.Describe(ch)
	c.failures.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.queueDepth.Collect(ch)
	c.requests.Collect(ch)
	c.notifications.Collect(ch)
	c.failures.Collect(ch)
}
