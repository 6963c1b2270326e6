// Package pipeline ties resolution, Jenkins submission and watching together.
// It is shared by the CLI, the MCP server and the watch agent.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"buildwatch-agent/src/config"
	"buildwatch-agent/src/jenkins"
	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/resolve"
	"buildwatch-agent/src/watch"
)

// Request describes one build to watch.
type Request struct {
	Provider string // Optional; detected from Target when empty
	Target   string // Jenkins job name or build URL

	// ConfigXML creates the Jenkins job before it is triggered.
	ConfigXML string
	// Trigger queues a build before watching. With ConfigXML set it also
	// means "trigger even if the job already exists".
	Trigger bool

	MaxWait      time.Duration // Zero uses the configured default
	PollInterval time.Duration // Zero uses the configured default
	Observer     watch.Observer
}

// Runner runs requests in-process.
type Runner struct {
	cfg        *config.Config
	resolver   *resolve.Resolver
	httpClient *http.Client
	opts       watch.Options
}

// NewRunner creates a Runner. opts is used for every watcher it creates; a
// request's Observer replaces opts.Observer.
func NewRunner(cfg *config.Config, httpClient *http.Client, opts watch.Options) *Runner {
	return &Runner{
		cfg:        cfg,
		resolver:   resolve.New(cfg, httpClient),
		httpClient: httpClient,
		opts:       opts,
	}
}

// Prepare resolves req.Target and, when req asks for it, submits the job to
// Jenkins. The returned job is ready to watch.
func (r *Runner) Prepare(ctx context.Context, req Request) (provider.Provider, provider.BuildJob, error) {
	p, job, err := r.resolver.Resolve(req.Provider, req.Target)
	if err != nil {
		return nil, provider.BuildJob{}, err
	}

	if req.ConfigXML == "" && !req.Trigger {
		return p, job, nil
	}

	if job.Provider != jenkins.ProviderName {
		return nil, provider.BuildJob{}, fmt.Errorf("triggering builds is only supported on jenkins, not %s", job.Provider)
	}

	client := jenkins.NewClient(job.Metadata["base_url"], job.Credentials, r.httpClient)
	submitted, err := client.Submit(ctx, job.Name, req.ConfigXML, req.Trigger)
	if err != nil {
		return nil, provider.BuildJob{}, fmt.Errorf("failed to submit %s: %w", job.Name, err)
	}
	return p, submitted, nil
}

// Run prepares and watches req. The error is non-nil only when the watch
// could not start; every watch outcome is reported through the Result.
func (r *Runner) Run(ctx context.Context, req Request) (watch.Result, error) {
	p, job, err := r.Prepare(ctx, req)
	if err != nil {
		return watch.Result{}, err
	}
	return r.Watch(ctx, p, job, req)
}

// Watch watches an already prepared job.
func (r *Runner) Watch(ctx context.Context, p provider.Provider, job provider.BuildJob, req Request) (watch.Result, error) {
	opts := r.opts
	if req.Observer != nil {
		opts.Observer = req.Observer
	}

	maxWait := req.MaxWait
	if maxWait <= 0 {
		maxWait = r.cfg.MaxWait
	}
	pollInterval := req.PollInterval
	if pollInterval <= 0 {
		pollInterval = r.cfg.PollInterval
	}

	return watch.New(p, opts).Watch(ctx, job, maxWait, pollInterval), nil
}

// Extract scans console text with the runner's extractor and ANSI setting.
func (r *Runner) Extract(console, rawResult string) watch.Extraction {
	return watch.New(nil, r.opts).Scan(console, rawResult)
}
