package watch

import (
	"time"

	"buildwatch-agent/src/provider"
)

// State is the poller's position in its lifecycle. Finished, TimedOut and
// Faulted are terminal.
type State int

const (
	Polling State = iota
	Finished
	TimedOut
	Faulted
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Finished:
		return "finished"
	case TimedOut:
		return "timed_out"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen from s.
func (s State) Terminal() bool {
	return s != Polling
}

// Fault classifies why a watch did not produce a clean result.
type Fault int

const (
	FaultNone Fault = iota
	// FaultTransport is a connection error, timeout or unreadable payload
	// while querying the CI server. It ends the watch immediately.
	FaultTransport
	// FaultTimeout means the budget ran out while the job was still building.
	FaultTimeout
	// FaultExtractionMiss means the job finished but no line of its console
	// output matched a marker. It is informational, not a failure.
	FaultExtractionMiss
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultTransport:
		return "transport_fault"
	case FaultTimeout:
		return "timeout"
	case FaultExtractionMiss:
		return "extraction_miss"
	default:
		return "unknown"
	}
}

// Outcome values returned by Result.Outcome.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeTimeout        = "timeout"
	OutcomeTransportFault = "transport_fault"
)

// Result is the final, immutable output of one watch.
//
// A timed-out result is never successful. DiagnosticLine holds console text
// only when the console log was retrieved; otherwise it carries the timeout
// or fault description.
type Result struct {
	Job            string
	Succeeded      bool
	DiagnosticLine string
	TimedOut       bool
	Fault          Fault
	Verdict        string        // Result field as declared by the CI server
	Polls          int           // Status queries issued
	Elapsed        time.Duration // Sum of poll intervals slept
	Wall           time.Duration // Clock time from first poll to result, request latency included
}

// Outcome collapses the result into one of the Outcome* constants.
func (r Result) Outcome() string {
	switch {
	case r.Fault == FaultTransport:
		return OutcomeTransportFault
	case r.TimedOut:
		return OutcomeTimeout
	case r.Succeeded:
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// Progress is reported to an Observer after every poll and on the final
// transition.
type Progress struct {
	Job     string
	State   State
	Polls   int
	Elapsed time.Duration
	Last    *provider.PollOutcome // nil when the last query did not decode
	Err     error                 // Inconclusive or fatal error from the last query
}

// Observer receives progress updates. It is called synchronously from the
// watching goroutine and must not block.
type Observer func(Progress)
