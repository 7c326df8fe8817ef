package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housechat",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}))

		r.requestLatency = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "housechat",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}))

		r.rateLimitHits = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housechat",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"}))

		r.messagesSent = register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "housechat",
			Subsystem: "messages",
			Name:      "sent_total",
			Help:      "Messages accepted for delivery",
		}))

		r.messagesDeleted = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housechat",
			Subsystem: "messages",
			Name:      "deleted_total",
			Help:      "Message deletions by scope",
		}, []string{"scope"}))

		r.sendDenied = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "housechat",
			Subsystem: "messages",
			Name:      "send_denied_total",
			Help:      "Rejected sends by error code",
		}, []string{"reason"}))

		r.metricsInitialized = true
	})
}

// register adds c to the default registry, reusing the collector that is
// already there when another Router registered it first.
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) recordSent() {
	if r.metricsInitialized {
		r.messagesSent.Inc()
	}
}

func (r *Router) recordDeleted(forEveryone bool) {
	if !r.metricsInitialized {
		return
	}
	scope := "self"
	if forEveryone {
		scope = "everyone"
	}
	r.messagesDeleted.WithLabelValues(scope).Inc()
}

func (r *Router) recordSendDenied(reason string) {
	if r.metricsInitialized {
		r.sendDenied.WithLabelValues(reason).Inc()
	}
}
