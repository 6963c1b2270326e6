package githubactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"buildwatch-agent/src/provider"
)

var (
	ErrInvalidURL = errors.New("invalid GitHub Actions URL")
)

// APIBaseURL is the GitHub REST API root.
const APIBaseURL = "https://api.github.com"

var workflowRunURLPattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/actions/runs/(\d+)`)

// Client is a GitHub Actions API client
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new GitHub Actions client. A nil httpClient gets a 30s
// timeout.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:      token,
		httpClient: httpClient,
		baseURL:    APIBaseURL,
	}
}

// ParseWorkflowRunURL extracts owner, repo, and run ID from URL
func ParseWorkflowRunURL(url string) (owner, repo, runID string, err error) {
	matches := workflowRunURLPattern.FindStringSubmatch(url)
	if matches == nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return matches[1], matches[2], matches[3], nil
}

// RunURL returns the API URL of a workflow run.
func (c *Client) RunURL(owner, repo, runID string) string {
	return fmt.Sprintf("%s/repos/%s/%s/actions/runs/%s", c.baseURL, owner, repo, runID)
}

// GetWorkflowRun fetches workflow run metadata
func (c *Client) GetWorkflowRun(ctx context.Context, owner, repo, runID string) (*WorkflowRun, error) {
	run, _, err := c.GetWorkflowRunByURL(ctx, c.RunURL(owner, repo, runID))
	return run, err
}

// GetWorkflowRunByURL fetches a run from its API URL and also returns the
// raw payload. Non-2xx answers are returned as a *provider.StatusError.
func (c *Client) GetWorkflowRunByURL(ctx context.Context, runURL string) (*WorkflowRun, []byte, error) {
	resp, err := c.do(ctx, runURL, c.httpClient)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, provider.NewStatusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	var run WorkflowRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, body, fmt.Errorf("failed to decode workflow run: %w", err)
	}

	return &run, body, nil
}

// GetWorkflowJobs fetches jobs for a workflow run (handles pagination)
func (c *Client) GetWorkflowJobs(ctx context.Context, runURL string) ([]WorkflowJob, error) {
	var allJobs []WorkflowJob
	page := 1
	perPage := 100 // GitHub's max per page

	for {
		url := fmt.Sprintf("%s/jobs?per_page=%d&page=%d", runURL, perPage, page)

		resp, err := c.do(ctx, url, c.httpClient)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := provider.NewStatusError(resp)
			resp.Body.Close()
			return nil, statusErr
		}

		var jobsResp WorkflowJobsResponse
		if err := json.NewDecoder(resp.Body).Decode(&jobsResp); err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body.Close()

		allJobs = append(allJobs, jobsResp.Jobs...)

		// Check if we've fetched all jobs
		if len(allJobs) >= jobsResp.TotalCount || len(jobsResp.Jobs) < perPage {
			break
		}

		page++
	}

	return allJobs, nil
}

// GetJobLogs fetches the plain-text log of a job. The API answers with a
// redirect to short-lived storage, which is followed without credentials.
func (c *Client) GetJobLogs(ctx context.Context, owner, repo string, jobID int64) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/actions/jobs/%d/logs", c.baseURL, owner, repo, jobID)

	// Don't follow redirects - we want the redirect URL
	// Clone the client settings and set custom CheckRedirect
	client := &http.Client{
		Timeout:   c.httpClient.Timeout,
		Transport: c.httpClient.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := c.do(ctx, url, client)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", provider.NewStatusError(resp)
	}

	// Follow redirect to download logs
	logURL := resp.Header.Get("Location")
	if logURL == "" {
		return "", errors.New("no redirect location for logs")
	}

	logReq, err := http.NewRequestWithContext(ctx, "GET", logURL, nil)
	if err != nil {
		return "", err
	}

	logResp, err := c.httpClient.Do(logReq)
	if err != nil {
		return "", err
	}
	defer logResp.Body.Close()

	if logResp.StatusCode != http.StatusOK {
		return "", provider.NewStatusError(logResp)
	}

	body, err := io.ReadAll(logResp.Body)
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (c *Client) do(ctx context.Context, url string, client *http.Client) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	return client.Do(req)
}
