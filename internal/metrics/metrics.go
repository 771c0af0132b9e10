// Package metrics exposes Prometheus collectors for the lead pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal     *prometheus.CounterVec
	leadsFoundTotal       prometheus.Counter
	discoveryQueriesTotal *prometheus.CounterVec
	outboundEmailsTotal   *prometheus.CounterVec
	crawlSweepsTotal      prometheus.Counter
	dispatchRunsTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_pages_fetched_total",
				Help: "Total number of prospect pages fetched, labeled by result.",
			},
			[]string{"result"},
		)
		leadsFoundTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_leads_found_total",
				Help: "Total number of new leads inserted by the crawl pipeline.",
			},
		)
		discoveryQueriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_discovery_queries_total",
				Help: "Total number of discovery queries issued, labeled by result.",
			},
			[]string{"result"},
		)
		outboundEmailsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadflow_outbound_emails_total",
				Help: "Total number of outreach attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		crawlSweepsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_crawl_sweeps_total",
				Help: "Total number of completed crawl sweeps.",
			},
		)
		dispatchRunsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "leadflow_dispatch_runs_total",
				Help: "Total number of completed dispatch runs.",
			},
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPageFetch counts one page fetch attempt.
func RecordPageFetch(ok bool) {
	if pagesFetchedTotal == nil {
		return
	}
	pagesFetchedTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordLeadFound counts one newly inserted lead.
func RecordLeadFound() {
	if leadsFoundTotal == nil {
		return
	}
	leadsFoundTotal.Inc()
}

// RecordDiscoveryQuery counts one oracle discovery call.
func RecordDiscoveryQuery(ok bool) {
	if discoveryQueriesTotal == nil {
		return
	}
	discoveryQueriesTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// RecordOutboundEmail counts one outreach attempt by outcome ("sent"/"failed").
func RecordOutboundEmail(outcome string) {
	if outboundEmailsTotal == nil {
		return
	}
	outboundEmailsTotal.WithLabelValues(outcome).Inc()
}

// RecordCrawlSweep counts one completed sweep.
func RecordCrawlSweep() {
	if crawlSweepsTotal == nil {
		return
	}
	crawlSweepsTotal.Inc()
}

// RecordDispatchRun counts one completed dispatch run.
func RecordDispatchRun() {
	if dispatchRunsTotal == nil {
		return
	}
	dispatchRunsTotal.Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
