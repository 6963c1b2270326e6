package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidURL      = errors.New("invalid build URL")
	ErrProviderUnknown = errors.New("unknown CI provider")
)

// Provider defines the interface for CI platforms a build can be watched on.
type Provider interface {
	// Name returns the provider name (e.g., "jenkins", "buildkite")
	Name() string

	// FetchStatus performs one status query for the job. A non-2xx answer
	// is reported as a *StatusError; anything else is a transport fault.
	FetchStatus(ctx context.Context, job BuildJob) (*PollOutcome, error)

	// FetchConsole retrieves the full console log for the job's build.
	FetchConsole(ctx context.Context, job BuildJob) (string, error)
}

// Factory builds a Provider around the given HTTP client.
type Factory func(httpClient *http.Client) Provider

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterProvider makes a provider available by name. Provider packages call
// it from init.
func RegisterProvider(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New returns the registered provider with the given name. A nil httpClient
// lets the provider pick its own defaults.
func New(name string, httpClient *http.Client) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, name)
	}
	return factory(httpClient), nil
}

// Names lists the registered providers in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	buildkiteURLPattern = regexp.MustCompile(`^https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)
	githubURLPattern    = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/actions/runs/(\d+)`)
	jenkinsURLPattern   = regexp.MustCompile(`^(https?://.+?)((?:/job/[^/]+)+)/?(?:lastBuild/?)?$`)
)

// ParseURL detects the provider and parses a build reference from a URL.
func ParseURL(url string) (*BuildRef, error) {
	if matches := buildkiteURLPattern.FindStringSubmatch(url); matches != nil {
		return &BuildRef{
			Provider: "buildkite",
			BuildID:  matches[3],
			Metadata: map[string]string{
				"org":      matches[1],
				"pipeline": matches[2],
			},
		}, nil
	}

	if matches := githubURLPattern.FindStringSubmatch(url); matches != nil {
		return &BuildRef{
			Provider: "github",
			BuildID:  matches[3],
			Metadata: map[string]string{
				"owner": matches[1],
				"repo":  matches[2],
			},
		}, nil
	}

	if matches := jenkinsURLPattern.FindStringSubmatch(url); matches != nil {
		// "/job/folder/job/app" -> "folder/app"
		segments := strings.Split(strings.TrimPrefix(matches[2], "/job/"), "/job/")
		return &BuildRef{
			Provider: "jenkins",
			BuildID:  strings.Join(segments, "/"),
			Metadata: map[string]string{
				"base_url": matches[1],
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidURL, url)
}
