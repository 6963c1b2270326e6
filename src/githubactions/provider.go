package githubactions

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"buildwatch-agent/src/provider"
)

// ProviderName is the registry key for GitHub Actions.
const ProviderName = "github"

func init() {
	provider.RegisterProvider(ProviderName, func(httpClient *http.Client) provider.Provider {
		return NewProvider(httpClient)
	})
}

// Provider implements provider.Provider for GitHub Actions. StatusURL is
// the run's API URL; the console is the concatenated logs of its jobs.
type Provider struct {
	httpClient *http.Client
}

// NewProvider creates a GitHub Actions provider
func NewProvider(httpClient *http.Client) *Provider {
	return &Provider{httpClient: httpClient}
}

// Name returns "github"
func (p *Provider) Name() string {
	return ProviderName
}

// JobFromRef builds the BuildJob for a parsed workflow run URL.
func JobFromRef(ref *provider.BuildRef, token string) provider.BuildJob {
	return jobFromRef(NewClient(token, nil), ref, token)
}

func jobFromRef(c *Client, ref *provider.BuildRef, token string) provider.BuildJob {
	url := c.RunURL(ref.Metadata["owner"], ref.Metadata["repo"], ref.BuildID)
	return provider.BuildJob{
		Name:        fmt.Sprintf("%s/%s run %s", ref.Metadata["owner"], ref.Metadata["repo"], ref.BuildID),
		Provider:    ProviderName,
		StatusURL:   url,
		ConsoleURL:  url,
		Credentials: provider.Credentials{Token: token},
		Metadata: map[string]string{
			"owner":  ref.Metadata["owner"],
			"repo":   ref.Metadata["repo"],
			"run_id": ref.BuildID,
		},
	}
}

func (p *Provider) client(job provider.BuildJob) *Client {
	c := NewClient(job.Credentials.Token, p.httpClient)
	if base := job.Metadata["api_base"]; base != "" {
		c.baseURL = base
	}
	return c
}

// FetchStatus retrieves the workflow run and maps its status.
func (p *Provider) FetchStatus(ctx context.Context, job provider.BuildJob) (*provider.PollOutcome, error) {
	run, raw, err := p.client(job).GetWorkflowRunByURL(ctx, job.StatusURL)
	if err != nil {
		return nil, err
	}

	outcome := &provider.PollOutcome{Raw: raw}
	outcome.Building, outcome.RawResult = MapStatus(run.Status, run.Conclusion)
	outcome.Result = provider.ParseResult(outcome.RawResult)
	return outcome, nil
}

// FetchConsole concatenates the logs of every job in the run, each under a
// header line.
func (p *Provider) FetchConsole(ctx context.Context, job provider.BuildJob) (string, error) {
	client := p.client(job)
	jobs, err := client.GetWorkflowJobs(ctx, job.ConsoleURL)
	if err != nil {
		return "", err
	}

	owner, repo := job.Metadata["owner"], job.Metadata["repo"]
	var b strings.Builder
	for _, ghJob := range jobs {
		log, err := client.GetJobLogs(ctx, owner, repo, ghJob.ID)
		if err != nil {
			return "", fmt.Errorf("failed to fetch log for job %d: %w", ghJob.ID, err)
		}
		fmt.Fprintf(&b, "--- %s ---\n", ghJob.Name)
		b.WriteString(log)
		if !strings.HasSuffix(log, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// MapStatus maps a run's status and conclusion to (building, result).
// Completed runs report "SUCCESS" for success and the upper-cased
// conclusion otherwise.
func MapStatus(status, conclusion string) (building bool, result string) {
	if status != "completed" {
		return true, ""
	}
	if conclusion == "success" {
		return false, "SUCCESS"
	}
	if conclusion == "" {
		return false, "UNKNOWN"
	}
	return false, strings.ToUpper(conclusion)
}
