// Package agent provides the watch agent for agent mode. It consumes watch
// requests from the broker, watches each build and publishes the result.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"buildwatch-agent/src/broker"
	"buildwatch-agent/src/contracts"
	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/pipeline"
	"buildwatch-agent/src/store"
)

// ConsumerGroup is the group every watch agent joins, so each request is
// handled by one agent.
const ConsumerGroup = "buildwatch-agent"

// Agent consumes watch requests and publishes watch events.
type Agent struct {
	broker  broker.Broker
	store   store.Store
	runner  *pipeline.Runner
	logger  logger.Logger
	workers int
}

// NewAgent creates a new watch agent running up to workers watches at once.
func NewAgent(brk broker.Broker, st store.Store, runner *pipeline.Runner, log logger.Logger, workers int) *Agent {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Agent{
		broker:  brk,
		store:   st,
		runner:  runner,
		logger:  log,
		workers: workers,
	}
}

// Run starts the agent's main loop. It returns when the subscription closes
// or ctx is cancelled, after in-flight watches finish.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[WatchAgent] Starting with %d workers...", a.workers)

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicWatchRequests, ConsumerGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicWatchRequests, err)
	}

	a.logger.Info("[WatchAgent] Listening for requests on '%s' topic...", contracts.TopicWatchRequests)

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			a.work(ctx, id, msgChan)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		a.logger.Info("[WatchAgent] Context cancelled, shutting down")
		return err
	}
	a.logger.Info("[WatchAgent] Message channel closed, shutting down")
	return nil
}

func (a *Agent) work(ctx context.Context, id int, msgChan <-chan broker.Message) {
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			if err := a.processRequest(ctx, msg); err != nil {
				a.logger.Error("[WatchAgent] Worker %d: error processing request: %v", id, err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// processRequest watches one build and publishes its event.
func (a *Agent) processRequest(ctx context.Context, msg broker.Message) error {
	var req contracts.WatchRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = contracts.NewRequestID()
	}

	a.logger.Info("[WatchAgent] Watching '%s' (request %s)", req.Target, req.RequestID)

	if err := a.store.CreateRequest(ctx, req.RequestID, req.Provider, req.Target); err != nil {
		a.logger.Error("[WatchAgent] Failed to record request %s: %v", req.RequestID, err)
	}

	preq := pipeline.Request{
		Provider:     req.Provider,
		Target:       req.Target,
		ConfigXML:    req.ConfigXML,
		Trigger:      req.Trigger,
		MaxWait:      req.MaxWait(),
		PollInterval: req.PollInterval(),
	}

	p, job, err := a.runner.Prepare(ctx, preq)
	if err != nil {
		return a.publish(ctx, errorEvent(req, err))
	}

	if err := a.store.UpdateStatus(ctx, req.RequestID, contracts.StatusWatching); err != nil {
		a.logger.Error("[WatchAgent] Failed to update status of %s: %v", req.RequestID, err)
	}

	result, err := a.runner.Watch(ctx, p, job, preq)
	if err != nil {
		return a.publish(ctx, errorEvent(req, err))
	}

	a.logger.Info("[WatchAgent] Request %s finished: %s after %d polls", req.RequestID, result.Outcome(), result.Polls)
	return a.publish(ctx, contracts.NewWatchEvent(req.RequestID, p.Name(), result))
}

// publish stores the event and sends it to the results topic.
func (a *Agent) publish(ctx context.Context, event contracts.WatchEvent) error {
	if err := a.store.CompleteRequest(ctx, event); err != nil {
		a.logger.Error("[WatchAgent] Failed to store result of %s: %v", event.RequestID, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := a.broker.Publish(ctx, contracts.TopicWatchResults, event.RequestID, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func errorEvent(req contracts.WatchRequest, err error) contracts.WatchEvent {
	return contracts.WatchEvent{
		RequestID: req.RequestID,
		Provider:  req.Provider,
		Job:       req.Target,
		Outcome:   contracts.OutcomeError,
		Error:     err.Error(),
		Report:    fmt.Sprintf("Error checking build %q: %v", req.Target, err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
