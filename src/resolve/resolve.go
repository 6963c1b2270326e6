// Package resolve turns a user-supplied build target (a Jenkins job name or a
// build URL) into a provider and the BuildJob to watch on it.
package resolve

import (
	"fmt"
	"net/http"
	"strings"

	"buildwatch-agent/src/buildkite"
	"buildwatch-agent/src/config"
	"buildwatch-agent/src/githubactions"
	"buildwatch-agent/src/jenkins"
	"buildwatch-agent/src/provider"
)

// Resolver maps targets to jobs using the credentials in cfg.
type Resolver struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a Resolver. A nil httpClient lets each provider use its default.
func New(cfg *config.Config, httpClient *http.Client) *Resolver {
	return &Resolver{cfg: cfg, httpClient: httpClient}
}

// Resolve returns the provider and job for target. A target that is not a URL
// is a Jenkins job name on the configured JENKINS_URL. providerName may be
// empty; when set it must agree with the target.
func (r *Resolver) Resolve(providerName, target string) (provider.Provider, provider.BuildJob, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, provider.BuildJob{}, fmt.Errorf("build target is required")
	}

	job, err := r.job(target)
	if err != nil {
		return nil, provider.BuildJob{}, err
	}
	if providerName != "" && providerName != job.Provider {
		return nil, provider.BuildJob{}, fmt.Errorf("target %q belongs to %s, not %s", target, job.Provider, providerName)
	}

	p, err := provider.New(job.Provider, r.httpClient)
	if err != nil {
		return nil, provider.BuildJob{}, err
	}
	return p, job, nil
}

// Job resolves target without constructing a provider.
func (r *Resolver) Job(target string) (provider.BuildJob, error) {
	return r.job(strings.TrimSpace(target))
}

func (r *Resolver) job(target string) (provider.BuildJob, error) {
	if !isURL(target) {
		if err := r.cfg.RequireJenkins(); err != nil {
			return provider.BuildJob{}, err
		}
		return jenkins.NewJob(r.cfg.JenkinsURL, target, r.cfg.JenkinsCredentials()), nil
	}

	ref, err := provider.ParseURL(target)
	if err != nil {
		return provider.BuildJob{}, err
	}

	switch ref.Provider {
	case jenkins.ProviderName:
		return jenkins.JobFromRef(ref, r.cfg.JenkinsCredentials()), nil
	case buildkite.ProviderName:
		return buildkite.JobFromRef(ref, r.cfg.BuildkiteAPIToken), nil
	case githubactions.ProviderName:
		return githubactions.JobFromRef(ref, r.cfg.GitHubToken), nil
	}
	return provider.BuildJob{}, fmt.Errorf("%w: %s", provider.ErrProviderUnknown, ref.Provider)
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
