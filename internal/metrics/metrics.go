// Package metrics exposes weekcal's Prometheus instruments.
//
// A nil *Collector is valid and records nothing, so CLI code paths that never
// serve /metrics can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianstephens/weekcal/internal/models"
)

const namespace = "weekcal"

type Collector struct {
	syncs         *prometheus.CounterVec
	syncDuration  prometheus.Histogram
	busyIntervals *prometheus.GaugeVec

	plans         prometheus.Counter
	planDuration  prometheus.Histogram
	planScheduled prometheus.Gauge
	planUnplaced  *prometheus.GaugeVec

	feedRequests *prometheus.CounterVec
	tokensIssued prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector registers all instruments with reg, or the default registerer when reg is nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_syncs_total",
			Help:      "Calendar source sync attempts by outcome",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_sync_duration_seconds",
			Help:      "Time spent fetching and applying one calendar source",
			Buckets:   prometheus.DefBuckets,
		}),
		busyIntervals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_busy_intervals",
			Help:      "Busy intervals held for each source after its last successful sync",
		}, []string{"source"}),
		plans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_generated_total",
			Help:      "Week plans computed",
		}),
		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_duration_seconds",
			Help:      "Time spent loading inputs and computing a week plan",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		planScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_scheduled_items",
			Help:      "Scheduled items in the most recent plan",
		}),
		planUnplaced: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plan_unscheduled_items",
			Help:      "Unscheduled tasks in the most recent plan by reason code",
		}, []string{"reason"}),
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Calendar feed requests by HTTP status code",
		}, []string{"code"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_tokens_issued_total",
			Help:      "Feed access tokens issued",
		}),
	}

	reg.MustRegister(
		c.syncs,
		c.syncDuration,
		c.busyIntervals,
		c.plans,
		c.planDuration,
		c.planScheduled,
		c.planUnplaced,
		c.feedRequests,
		c.tokensIssued,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	} else {
		c.gatherer = prometheus.DefaultGatherer
	}

	return c
}

// RecordSync counts one source sync outcome.
func (c *Collector) RecordSync(outcome models.SyncOutcome, took time.Duration) {
	if c == nil {
		return
	}
	label := string(outcome.Status)
	if outcome.NotModified {
		label = "not_modified"
	}
	c.syncs.WithLabelValues(label).Inc()
	c.syncDuration.Observe(took.Seconds())
	if outcome.Status == models.FetchStatusOK && !outcome.NotModified {
		c.busyIntervals.WithLabelValues(outcome.SourceID).Set(float64(outcome.IntervalCount))
	}
}

// ForgetSource drops the per-source gauge once a source is deleted or disabled.
func (c *Collector) ForgetSource(sourceID string) {
	if c == nil {
		return
	}
	c.busyIntervals.DeleteLabelValues(sourceID)
}

func (c *Collector) RecordPlan(plan models.WeekPlan, took time.Duration) {
	if c == nil {
		return
	}
	c.plans.Inc()
	c.planDuration.Observe(took.Seconds())
	c.planScheduled.Set(float64(len(plan.Items)))

	counts := map[models.ReasonCode]int{
		models.ReasonNoFreeSlot:          0,
		models.ReasonOutsideWorkingHours: 0,
		models.ReasonFixedConflict:       0,
	}
	for _, u := range plan.Unscheduled {
		counts[u.ReasonCode]++
	}
	for code, n := range counts {
		c.planUnplaced.WithLabelValues(string(code)).Set(float64(n))
	}
}

func (c *Collector) RecordFeedRequest(code int) {
	if c == nil {
		return
	}
	c.feedRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (c *Collector) RecordTokenIssued() {
	if c == nil {
		return
	}
	c.tokensIssued.Inc()
}

// Handler serves the registry the collector was registered with.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
