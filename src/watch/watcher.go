// Package watch waits for an asynchronous CI build to finish and recovers a
// verdict plus one diagnostic line from its console output.
//
// A Watcher polls a provider.Provider until the build stops running or the
// time budget is spent. Every condition, including transport faults, is
// returned as a Result value; Watch never returns an error.
package watch

import (
	"context"
	"fmt"
	"time"

	"buildwatch-agent/src/clock"
	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/sanitize"
)

const (
	DefaultMaxWait      = 300 * time.Second
	DefaultPollInterval = 5 * time.Second

	// TimedOutMessage is the diagnostic line of a timed-out result.
	TimedOutMessage = "timed out"
)

// Metrics receives counters from a Watcher. metrics.Collectors implements it.
type Metrics interface {
	ObservePoll(providerName string)
	ObserveResult(providerName string, result Result)
}

// Options configures a Watcher. The zero value is usable.
type Options struct {
	Clock     clock.Clock   // Defaults to the real clock
	Logger    logger.Logger // Defaults to a silent logger
	Extractor Extractor     // Defaults to DefaultExtractor when Markers is nil
	KeepANSI  bool          // Scan console text without stripping escape codes
	Observer  Observer
	Metrics   Metrics
}

// Watcher runs watches against a single provider. It holds no per-watch
// state, so one Watcher may serve concurrent Watch calls.
type Watcher struct {
	provider  provider.Provider
	clock     clock.Clock
	log       logger.Logger
	extractor Extractor
	keepANSI  bool
	observer  Observer
	metrics   Metrics
}

// New creates a Watcher for p.
func New(p provider.Provider, opts Options) *Watcher {
	w := &Watcher{
		provider:  p,
		clock:     opts.Clock,
		log:       opts.Logger,
		extractor: opts.Extractor,
		keepANSI:  opts.KeepANSI,
		observer:  opts.Observer,
		metrics:   opts.Metrics,
	}
	if w.clock == nil {
		w.clock = clock.Real()
	}
	if w.log == nil {
		w.log = logger.NewSilentLogger()
	}
	if w.extractor.Markers == nil {
		defaults := DefaultExtractor()
		if w.extractor.CommandMarker == "" {
			w.extractor.CommandMarker = defaults.CommandMarker
		}
		if w.extractor.Sentinel == "" {
			w.extractor.Sentinel = defaults.Sentinel
		}
		w.extractor.Markers = defaults.Markers
	}
	return w
}

// Watch polls job until it stops building or maxWait is used up.
//
// Elapsed time advances by pollInterval per iteration, not by wall clock, and
// pollInterval is not clamped to maxWait. The budget is checked before each
// poll, so at least one poll always happens. Non-positive durations fall back
// to DefaultMaxWait and DefaultPollInterval.
//
// The sleep between polls is not interruptible; ctx only reaches the HTTP
// queries, so cancellation shows up as a transport fault on the next poll.
func (w *Watcher) Watch(ctx context.Context, job provider.BuildJob, maxWait, pollInterval time.Duration) Result {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	w.log.Info("[Watcher] Watching %s (max wait %s, poll every %s)", job.Name, maxWait, pollInterval)

	started := w.clock.Now()
	result := w.poll(ctx, job, maxWait, pollInterval)
	result.Wall = w.clock.Now().Sub(started)

	if w.metrics != nil {
		w.metrics.ObserveResult(w.provider.Name(), result)
	}
	w.log.Info("[Watcher] %s: %s after %d polls (%s, %s wall)", job.Name, result.Outcome(), result.Polls, result.Elapsed, result.Wall)
	return result
}

func (w *Watcher) poll(ctx context.Context, job provider.BuildJob, maxWait, pollInterval time.Duration) Result {
	var elapsed time.Duration
	polls := 0

	for elapsed < maxWait {
		polls++
		if w.metrics != nil {
			w.metrics.ObservePoll(w.provider.Name())
		}

		outcome, err := w.provider.FetchStatus(ctx, job)
		switch {
		case err != nil && !provider.IsStatusError(err):
			w.log.Error("[Watcher] Status query for %s failed: %v", job.Name, err)
			w.notify(Progress{Job: job.Name, State: Faulted, Polls: polls, Elapsed: elapsed, Err: err})
			return Result{
				Job:            job.Name,
				DiagnosticLine: fmt.Sprintf("status query failed: %v", err),
				Fault:          FaultTransport,
				Polls:          polls,
				Elapsed:        elapsed,
			}
		case err != nil:
			w.log.Debug("[Watcher] Inconclusive status for %s: %v", job.Name, err)
		case !outcome.Building:
			return w.finish(ctx, job, outcome, polls, elapsed)
		}

		w.notify(Progress{Job: job.Name, State: Polling, Polls: polls, Elapsed: elapsed, Last: outcome, Err: err})
		w.clock.Sleep(pollInterval)
		elapsed += pollInterval
	}

	w.notify(Progress{Job: job.Name, State: TimedOut, Polls: polls, Elapsed: elapsed})
	return Result{
		Job:            job.Name,
		DiagnosticLine: TimedOutMessage,
		TimedOut:       true,
		Fault:          FaultTimeout,
		Polls:          polls,
		Elapsed:        elapsed,
	}
}

// finish fetches the console log of a build that is no longer running and
// extracts the result from it.
func (w *Watcher) finish(ctx context.Context, job provider.BuildJob, outcome *provider.PollOutcome, polls int, elapsed time.Duration) Result {
	console, err := w.provider.FetchConsole(ctx, job)
	if err != nil {
		w.log.Error("[Watcher] Console fetch for %s failed: %v", job.Name, err)
		w.notify(Progress{Job: job.Name, State: Faulted, Polls: polls, Elapsed: elapsed, Last: outcome, Err: err})
		return Result{
			Job:            job.Name,
			DiagnosticLine: fmt.Sprintf("console fetch failed: %v", err),
			Fault:          FaultTransport,
			Verdict:        outcome.RawResult,
			Polls:          polls,
			Elapsed:        elapsed,
		}
	}

	extraction := w.Scan(console, outcome.RawResult)

	fault := FaultNone
	if !extraction.Found {
		w.log.Debug("[Watcher] No diagnostic line in %d bytes of console output for %s", len(console), job.Name)
		fault = FaultExtractionMiss
	}

	w.notify(Progress{Job: job.Name, State: Finished, Polls: polls, Elapsed: elapsed, Last: outcome})
	return Result{
		Job:            job.Name,
		Succeeded:      extraction.Succeeded,
		DiagnosticLine: extraction.DiagnosticLine,
		Fault:          fault,
		Verdict:        extraction.Verdict,
		Polls:          polls,
		Elapsed:        elapsed,
	}
}

// Scan extracts the verdict and diagnostic line from console text the same
// way a finished watch does, stripping escape codes unless KeepANSI is set.
func (w *Watcher) Scan(console, rawResult string) Extraction {
	if !w.keepANSI {
		console = sanitize.StripANSI(console)
	}
	return w.extractor.Extract(console, rawResult)
}

func (w *Watcher) notify(p Progress) {
	if w.observer != nil {
		w.observer(p)
	}
}
