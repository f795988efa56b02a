package service

// MetricsRecorder receives domain events from the services. The HTTP layer
// backs it with Prometheus collectors; a nil recorder is replaced by a no-op.
type MetricsRecorder interface {
	FlightPlanMutated(op string)
	PlanCacheLookup(hit bool)
	TrajectorySaved(distanceMeters float64)
	TrajectoriesDeleted(n int64)
	PositionRecorded()
}

type noopMetrics struct{}

func (noopMetrics) FlightPlanMutated(string)  {}
func (noopMetrics) PlanCacheLookup(bool)      {}
func (noopMetrics) TrajectorySaved(float64)   {}
func (noopMetrics) TrajectoriesDeleted(int64) {}
func (noopMetrics) PositionRecorded()         {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
