package node

import (
	"strconv"
	"time"

	"github.com/kamalbuilds/movetracer/clients/fullnode"
	"github.com/kamalbuilds/movetracer/simulator"
	"github.com/kamalbuilds/movetracer/utils"
	"github.com/prometheus/client_golang/prometheus"
)

func makeFullNodeMetrics(reg prometheus.Registerer) fullnode.EventListener {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fullnode",
		Subsystem: "client",
		Name:      "attempts",
		Help:      "Full node request attempts by endpoint and status class.",
	}, []string{"endpoint", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fullnode",
		Subsystem: "client",
		Name:      "attempt_latency",
		Help:      "Full node attempt latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(25, 2, 10), // 25ms .. 12.8s
	}, []string{"endpoint"})
	failovers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fullnode",
		Subsystem: "client",
		Name:      "failovers",
		Help:      "Attempts that failed over to the next endpoint.",
	}, []string{"endpoint"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fullnode",
		Subsystem: "client",
		Name:      "exhausted",
		Help:      "Requests for which every endpoint failed.",
	}, []string{"network"})
	reg.MustRegister(attempts, latency, failovers, exhausted)

	return &fullnode.SelectiveListener{
		OnAttemptCb: func(endpoint, _ string, status int, took time.Duration) {
			attempts.WithLabelValues(endpoint, statusClass(status)).Inc()
			latency.WithLabelValues(endpoint).Observe(float64(took.Milliseconds()))
		},
		OnFailoverCb: func(from, _, _ string) {
			failovers.WithLabelValues(from).Inc()
		},
		OnExhaustedCb: func(network, _ string) {
			exhausted.WithLabelValues(network).Inc()
		},
	}
}

// statusClass keeps the label cardinality bounded: "2xx", "4xx", "5xx" or "error".
func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// RequestListener observes the REST surface.
type RequestListener interface {
	OnRequest(route string, status int, took time.Duration)
}

type SelectiveRequestListener struct {
	OnRequestCb func(route string, status int, took time.Duration)
}

func (l *SelectiveRequestListener) OnRequest(route string, status int, took time.Duration) {
	if l.OnRequestCb != nil {
		l.OnRequestCb(route, status, took)
	}
}

func makeHTTPMetrics(reg prometheus.Registerer) RequestListener {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rest",
		Subsystem: "server",
		Name:      "requests",
		Help:      "REST requests by route and status code.",
	}, []string{"route", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rest",
		Subsystem: "server",
		Name:      "requests_latency",
		Help:      "REST request latency in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 12), // 5ms .. 10s
	}, []string{"route"})
	reg.MustRegister(requests, latency)

	return &SelectiveRequestListener{
		OnRequestCb: func(route string, status int, took time.Duration) {
			requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			latency.WithLabelValues(route).Observe(float64(took.Milliseconds()))
		},
	}
}

func makeThrottlerMetrics(reg prometheus.Registerer, throttler *utils.Throttler[simulator.Service]) {
	jobs := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "simulator",
		Name:      "jobs",
		Help:      "Simulations currently running.",
	}, func() float64 {
		return float64(throttler.JobsRunning())
	})
	queue := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "simulator",
		Name:      "queue",
		Help:      "Simulations waiting for a slot.",
	}, func() float64 {
		return float64(throttler.QueueLen())
	})
	reg.MustRegister(jobs, queue)
}

func makeInfoMetrics(reg prometheus.Registerer, version string) {
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "movetracer",
		Name:        "info",
		Help:        "Movetracer version",
		ConstLabels: prometheus.Labels{"version": version},
	}))
}
