package gateway

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// ringCapacity bounds the in-memory telemetry buffer (spec §5: "bounded at
// 1000 entries, FIFO eviction").
const ringCapacity = 1000

// UsageRecord is one completed request's observability summary (spec §5a).
type UsageRecord struct {
	Time         time.Time
	User         string
	Model        string
	Endpoint     string
	Status       string
	InputTokens  int
	OutputTokens int
	DurationMS   int64
}

// Telemetry is a mutex-guarded FIFO ring buffer of the most recent usage
// records, optionally mirrored to a newline-delimited JSON file.
type Telemetry struct {
	mu      sync.Mutex
	records []UsageRecord
	next    int
	count   int

	fileSink *fileSink
}

// NewTelemetry builds a Telemetry recorder. When enabled and endpoint names
// a local file path (not an http(s):// URL), records are also appended to
// that file as newline-delimited JSON, guarded by an advisory flock so
// multiple gateway processes sharing the path don't interleave writes.
func NewTelemetry(enabled bool, endpoint string) *Telemetry {
	t := &Telemetry{records: make([]UsageRecord, ringCapacity)}

	if enabled && endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		t.fileSink = newFileSink(endpoint)
	}

	return t
}

// Record appends a usage record to the ring buffer, evicting the oldest
// entry once capacity is reached, and mirrors it to the file sink if one is
// configured.
func (t *Telemetry) Record(rec UsageRecord) {
	t.mu.Lock()
	t.records[t.next] = rec
	t.next = (t.next + 1) % ringCapacity
	if t.count < ringCapacity {
		t.count++
	}
	t.mu.Unlock()

	if t.fileSink != nil {
		t.fileSink.append(rec)
	}
}

// Snapshot is the /stats response: aggregate counts/totals/averages plus
// the most recent records (spec §4.8a).
type Snapshot struct {
	Count       int           `json:"count"`
	TotalInput  int           `json:"total_input_tokens"`
	TotalOutput int           `json:"total_output_tokens"`
	AvgDuration float64       `json:"avg_duration_ms"`
	LastRecords []UsageRecord `json:"last_records"`
}

// Snapshot is a best-effort view (spec §5: "not linearizable with in-flight
// recordings").
func (t *Telemetry) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{Count: t.count}
	if t.count == 0 {
		return snap
	}

	var totalDurationMS int64
	for i := 0; i < t.count; i++ {
		idx := (t.next - 1 - i + ringCapacity) % ringCapacity
		if i >= ringCapacity {
			break
		}
		rec := t.records[idx]
		snap.TotalInput += rec.InputTokens
		snap.TotalOutput += rec.OutputTokens
		totalDurationMS += rec.DurationMS
		if len(snap.LastRecords) < 10 {
			snap.LastRecords = append(snap.LastRecords, rec)
		}
	}
	snap.AvgDuration = float64(totalDurationMS) / float64(t.count)

	return snap
}

// fileSink appends usage records as newline-delimited JSON, encoded through
// zerolog.Event the same way the pack's AI-gateway manifests shape their
// structured telemetry, guarded by a flock so co-located processes don't
// tear each other's writes.
type fileSink struct {
	path string
	lock *flock.Flock
}

func newFileSink(path string) *fileSink {
	return &fileSink{path: path, lock: flock.New(path + ".lock")}
}

func (s *fileSink) append(rec UsageRecord) {
	locked, err := s.lock.TryLock()
	if err != nil || !locked {
		return
	}
	defer s.lock.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	zerolog.New(&buf).Log().
		Time("time", rec.Time).
		Str("user", rec.User).
		Str("model", rec.Model).
		Str("endpoint", rec.Endpoint).
		Str("status", rec.Status).
		Int("input_tokens", rec.InputTokens).
		Int("output_tokens", rec.OutputTokens).
		Int64("duration_ms", rec.DurationMS).
		Msg("usage")

	_, _ = f.Write(buf.Bytes())
}
