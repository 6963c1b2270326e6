// Package contracts defines the messages exchanged between buildwatch
// components over the broker, and the record persisted for each request.
package contracts

import (
	"time"

	"github.com/google/uuid"

	"buildwatch-agent/src/watch"
)

// Topic names used by agent mode.
const (
	// TopicWatchRequests carries WatchRequest messages, keyed by request ID.
	TopicWatchRequests = "buildwatch.requests"

	// TopicWatchResults carries WatchEvent messages, keyed by request ID.
	TopicWatchResults = "buildwatch.results"
)

// Request status values stored in WatchRecord.Status.
const (
	StatusPending   = "pending"
	StatusWatching  = "watching"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return "req-" + uuid.NewString()
}

// WatchRequest asks an agent to watch a build.
// Published to: buildwatch.requests
// Key: {request_id}
type WatchRequest struct {
	RequestID string `json:"request_id"`
	// Provider name; empty means detect from Target (URLs) or Jenkins (names).
	Provider string `json:"provider,omitempty"`
	// Jenkins job name or a build URL.
	Target string `json:"target"`
	// When set, the job is created from this config.xml and triggered first.
	ConfigXML string `json:"config_xml,omitempty"`
	// Trigger a build of an existing job before watching.
	Trigger bool `json:"trigger,omitempty"`

	MaxWaitMillis      int64  `json:"max_wait_ms,omitempty"`
	PollIntervalMillis int64  `json:"poll_interval_ms,omitempty"`
	Timestamp          string `json:"timestamp"`
}

// SetDurations records the budget and interval at millisecond precision.
func (r *WatchRequest) SetDurations(maxWait, pollInterval time.Duration) {
	r.MaxWaitMillis = maxWait.Milliseconds()
	r.PollIntervalMillis = pollInterval.Milliseconds()
}

// MaxWait returns the requested budget, or zero for the watcher default.
func (r WatchRequest) MaxWait() time.Duration {
	return time.Duration(r.MaxWaitMillis) * time.Millisecond
}

// PollInterval returns the requested interval, or zero for the watcher
// default.
func (r WatchRequest) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMillis) * time.Millisecond
}

// WatchEvent reports the result of a watch.
// Published to: buildwatch.results
// Key: {request_id}
type WatchEvent struct {
	RequestID      string  `json:"request_id"`
	Provider       string  `json:"provider"`
	Job            string  `json:"job"`
	Outcome        string  `json:"outcome"` // success, failure, timeout, transport_fault or error
	Succeeded      bool    `json:"succeeded"`
	TimedOut       bool    `json:"timed_out"`
	Fault          string  `json:"fault"`
	Verdict        string  `json:"verdict,omitempty"`
	DiagnosticLine string  `json:"diagnostic_line"`
	Polls          int     `json:"polls"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Report         string  `json:"report"`
	Error          string  `json:"error,omitempty"` // Set when the watch could not start
	Timestamp      string  `json:"timestamp"`
}

// OutcomeError marks an event for a request that never reached the watcher.
const OutcomeError = "error"

// NewWatchEvent builds the event for a finished watch.
func NewWatchEvent(requestID, providerName string, r watch.Result) WatchEvent {
	return WatchEvent{
		RequestID:      requestID,
		Provider:       providerName,
		Job:            r.Job,
		Outcome:        r.Outcome(),
		Succeeded:      r.Succeeded,
		TimedOut:       r.TimedOut,
		Fault:          r.Fault.String(),
		Verdict:        r.Verdict,
		DiagnosticLine: r.DiagnosticLine,
		Polls:          r.Polls,
		ElapsedSeconds: r.Elapsed.Seconds(),
		Report:         watch.Report(r),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

// WatchRecord is the persisted state of one request.
type WatchRecord struct {
	RequestID      string
	Provider       string
	Target         string
	Status         string // pending, watching, completed, failed
	Outcome        string
	Succeeded      bool
	DiagnosticLine string
	Polls          int
	ElapsedSeconds float64
	Error          string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}
