package gateway

import "time"

// recordOutcome updates both observability surfaces (spec §5a, §6) for one
// completed request: the Prometheus instruments and the telemetry ring
// buffer entry.
func (gw *Gateway) recordOutcome(user, model, endpoint, status string, start time.Time, inputTokens, outputTokens int) {
	duration := time.Since(start)

	gw.metrics.observe(user, model, endpoint, status, duration.Seconds(), inputTokens, outputTokens)
	gw.telemetry.Record(UsageRecord{
		Time:         start,
		User:         user,
		Model:        model,
		Endpoint:     endpoint,
		Status:       status,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		DurationMS:   duration.Milliseconds(),
	})
}
