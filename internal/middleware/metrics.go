package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the API: HTTP request
// counters and latencies plus the domain counters fed by the services.
type Collector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	PlanMutations      *prometheus.CounterVec
	PlanCache          *prometheus.CounterVec
	TrajectorySaves    prometheus.Counter
	TrajectoryDistance prometheus.Histogram
	TrajectoryDeletes  prometheus.Counter
	PositionWrites     prometheus.Counter
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uav_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "uav_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uav_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "route"}), "uav_http_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.PlanMutations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uav_flight_plan_mutations_total",
		Help: "Flight plan creates, updates and deletes.",
	}, []string{"op"}), "uav_flight_plan_mutations_total"); err != nil {
		return nil, err
	}
	if c.PlanCache, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uav_flight_plan_cache_lookups_total",
		Help: "Flight plan cache lookups by result (hit or miss).",
	}, []string{"result"}), "uav_flight_plan_cache_lookups_total"); err != nil {
		return nil, err
	}
	if c.TrajectorySaves, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uav_trajectories_saved_total",
		Help: "Trajectories persisted.",
	}), "uav_trajectories_saved_total"); err != nil {
		return nil, err
	}
	if c.TrajectoryDistance, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "uav_trajectory_distance_meters",
		Help:    "Server-computed distance of persisted trajectories.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	}), "uav_trajectory_distance_meters"); err != nil {
		return nil, err
	}
	if c.TrajectoryDeletes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uav_trajectories_deleted_total",
		Help: "Trajectories removed, singly or in bulk.",
	}), "uav_trajectories_deleted_total"); err != nil {
		return nil, err
	}
	if c.PositionWrites, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uav_positions_recorded_total",
		Help: "UAV position snapshots appended.",
	}), "uav_positions_recorded_total"); err != nil {
		return nil, err
	}

	return c, nil
}

// Middleware records request counts and durations per matched route
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) FlightPlanMutated(op string) {
	c.PlanMutations.WithLabelValues(op).Inc()
}

func (c *Collector) PlanCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.PlanCache.WithLabelValues(result).Inc()
}

func (c *Collector) TrajectorySaved(distanceMeters float64) {
	c.TrajectorySaves.Inc()
	c.TrajectoryDistance.Observe(distanceMeters)
}

func (c *Collector) TrajectoriesDeleted(n int64) {
	c.TrajectoryDeletes.Add(float64(n))
}

func (c *Collector) PositionRecorded() {
	c.PositionWrites.Inc()
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T, name string) (T, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return collector, nil
}
