// Package buildkite provides a client for interacting with the Buildkite API.
package buildkite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"buildwatch-agent/src/provider"
)

const (
	// APIBaseURL is the base URL for the Buildkite API.
	APIBaseURL = "https://api.buildkite.com/v2"
)

// Client is a Buildkite API client.
type Client struct {
	apiToken   string
	httpClient *http.Client
	baseURL    string
}

// Build represents a Buildkite build.
type Build struct {
	ID        string    `json:"id"`
	Number    int       `json:"number"`
	State     string    `json:"state"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	Jobs      []Job     `json:"jobs"`
}

// Job represents a Buildkite job within a build.
type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	State      string    `json:"state"`
	ExitStatus *int      `json:"exit_status"`
	CreatedAt  time.Time `json:"created_at"`
	LogURL     string    `json:"log_url"`
	RawLogURL  string    `json:"raw_log_url"`
}

// NewClient creates a new Buildkite API client. A nil httpClient gets a 30s
// timeout.
func NewClient(apiToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiToken:   apiToken,
		httpClient: httpClient,
		baseURL:    APIBaseURL,
	}
}

// WithBaseURL points the client at another API root (used by tests).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

var buildURLPattern = regexp.MustCompile(`https://buildkite\.com/([^/]+)/([^/]+)/builds/(\d+)`)

// ParseBuildURL extracts the organization, pipeline, and build number from a Buildkite URL.
// Expected format: https://buildkite.com/{org}/{pipeline}/builds/{number}
func ParseBuildURL(buildURL string) (org, pipeline string, buildNumber int, err error) {
	matches := buildURLPattern.FindStringSubmatch(buildURL)
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("invalid Buildkite URL format: %s", buildURL)
	}

	org = matches[1]
	pipeline = matches[2]
	buildNumber, err = strconv.Atoi(matches[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid build number in URL: %w", err)
	}

	return org, pipeline, buildNumber, nil
}

// BuildURL returns the API URL of a build.
func (c *Client) BuildURL(org, pipeline, buildNumber string) string {
	return fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds/%s", c.baseURL, org, pipeline, buildNumber)
}

// GetBuild fetches a build's metadata from the Buildkite API.
func (c *Client) GetBuild(ctx context.Context, org, pipeline, buildNumber string) (*Build, error) {
	build, _, err := c.GetBuildByURL(ctx, c.BuildURL(org, pipeline, buildNumber))
	return build, err
}

// GetBuildByURL fetches a build from its API URL and also returns the raw
// payload. Non-2xx answers are returned as a *provider.StatusError.
func (c *Client) GetBuildByURL(ctx context.Context, buildURL string) (*Build, []byte, error) {
	body, err := c.get(ctx, buildURL, "application/json")
	if err != nil {
		return nil, nil, err
	}

	var build Build
	if err := json.Unmarshal(body, &build); err != nil {
		return nil, body, fmt.Errorf("failed to decode response: %w", err)
	}

	return &build, body, nil
}

// GetJobLogByURL fetches the raw log content using the provided raw_log_url.
// This is the preferred method as it uses the URL provided by the Buildkite API.
func (c *Client) GetJobLogByURL(ctx context.Context, rawLogURL string) (string, error) {
	body, err := c.get(ctx, rawLogURL, "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NewStatusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
