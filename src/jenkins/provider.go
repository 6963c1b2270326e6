package jenkins

import (
	"context"
	"net/http"
	"time"

	"buildwatch-agent/src/provider"
)

// ProviderName is the registry key for Jenkins.
const ProviderName = "jenkins"

func init() {
	provider.RegisterProvider(ProviderName, func(httpClient *http.Client) provider.Provider {
		return NewProvider(httpClient)
	})
}

// Provider implements provider.Provider for Jenkins. Each query uses the
// credentials carried by the job being watched.
type Provider struct {
	httpClient *http.Client
}

// NewProvider creates a Jenkins provider. A nil httpClient gets a 30s timeout.
func NewProvider(httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{httpClient: httpClient}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) client(job provider.BuildJob) *Client {
	return NewClient(job.Metadata["base_url"], job.Credentials, p.httpClient)
}

// FetchStatus queries job.StatusURL once.
func (p *Provider) FetchStatus(ctx context.Context, job provider.BuildJob) (*provider.PollOutcome, error) {
	status, raw, err := p.client(job).GetBuildStatus(ctx, job.StatusURL)
	if err != nil {
		return nil, err
	}

	outcome := &provider.PollOutcome{
		Building:  status.IsBuilding(),
		RawResult: status.ResultString(),
		Raw:       raw,
	}
	if outcome.Building {
		outcome.Result = provider.ResultUnknown
	} else {
		outcome.Result = provider.ParseResult(outcome.RawResult)
	}
	return outcome, nil
}

// FetchConsole fetches job.ConsoleURL.
func (p *Provider) FetchConsole(ctx context.Context, job provider.BuildJob) (string, error) {
	return p.client(job).GetConsoleText(ctx, job.ConsoleURL)
}
