package buildkite

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"buildwatch-agent/src/provider"
)

// ProviderName is the registry key for Buildkite.
const ProviderName = "buildkite"

func init() {
	provider.RegisterProvider(ProviderName, func(httpClient *http.Client) provider.Provider {
		return NewProvider(httpClient)
	})
}

// Provider implements provider.Provider for Buildkite. The job's StatusURL
// is the build's API URL; the console is the concatenated raw logs of its
// script jobs.
type Provider struct {
	httpClient *http.Client
}

// NewProvider creates a Buildkite provider.
func NewProvider(httpClient *http.Client) *Provider {
	return &Provider{httpClient: httpClient}
}

// Name returns "buildkite"
func (p *Provider) Name() string {
	return ProviderName
}

// JobFromRef builds the BuildJob for a parsed Buildkite build URL.
func JobFromRef(ref *provider.BuildRef, token string) provider.BuildJob {
	url := NewClient(token, nil).BuildURL(ref.Metadata["org"], ref.Metadata["pipeline"], ref.BuildID)
	return provider.BuildJob{
		Name:        fmt.Sprintf("%s/%s#%s", ref.Metadata["org"], ref.Metadata["pipeline"], ref.BuildID),
		Provider:    ProviderName,
		StatusURL:   url,
		ConsoleURL:  url,
		Credentials: provider.Credentials{Token: token},
		Metadata:    ref.Metadata,
	}
}

func (p *Provider) client(job provider.BuildJob) *Client {
	return NewClient(job.Credentials.Token, p.httpClient)
}

// FetchStatus retrieves the build and maps its state.
func (p *Provider) FetchStatus(ctx context.Context, job provider.BuildJob) (*provider.PollOutcome, error) {
	build, raw, err := p.client(job).GetBuildByURL(ctx, job.StatusURL)
	if err != nil {
		return nil, err
	}

	outcome := &provider.PollOutcome{Raw: raw}
	outcome.Building, outcome.RawResult = MapState(build.State)
	outcome.Result = provider.ParseResult(outcome.RawResult)
	return outcome, nil
}

// FetchConsole fetches every script job's raw log, each under a header line.
func (p *Provider) FetchConsole(ctx context.Context, job provider.BuildJob) (string, error) {
	client := p.client(job)
	build, _, err := client.GetBuildByURL(ctx, job.ConsoleURL)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, bkJob := range build.Jobs {
		if bkJob.Type != "script" || bkJob.RawLogURL == "" {
			continue
		}
		log, err := client.GetJobLogByURL(ctx, bkJob.RawLogURL)
		if err != nil {
			return "", fmt.Errorf("failed to fetch log for job %s: %w", bkJob.ID, err)
		}
		fmt.Fprintf(&b, "--- %s ---\n", bkJob.Name)
		b.WriteString(log)
		if !strings.HasSuffix(log, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// MapState maps a Buildkite build state to (building, result). Finished
// builds report "SUCCESS" for passed and the upper-cased state otherwise.
func MapState(state string) (building bool, result string) {
	switch state {
	case "scheduled", "running", "creating", "canceling", "blocked", "waiting":
		return true, ""
	case "passed":
		return false, "SUCCESS"
	case "":
		return true, ""
	default:
		return false, strings.ToUpper(state)
	}
}
