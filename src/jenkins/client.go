// Package jenkins provides a client for the Jenkins remote access API and a
// provider.Provider backed by it.
package jenkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"buildwatch-agent/src/provider"
)

// Client is a Jenkins API client bound to one server and one set of
// credentials.
type Client struct {
	baseURL    string
	creds      provider.Credentials
	httpClient *http.Client
}

// BuildStatus is the subset of /lastBuild/api/json the watcher reads.
// Building is a pointer so an absent field can be told apart from false.
type BuildStatus struct {
	Building  *bool   `json:"building"`
	Result    *string `json:"result"`
	Number    int     `json:"number"`
	URL       string  `json:"url"`
	Duration  int64   `json:"duration"`
	Timestamp int64   `json:"timestamp"`
}

// IsBuilding reports whether the build is still running. A payload without
// a building field counts as running.
func (s BuildStatus) IsBuilding() bool {
	return s.Building == nil || *s.Building
}

// ResultString returns the declared result, or "" while it is null.
func (s BuildStatus) ResultString() string {
	if s.Result == nil {
		return ""
	}
	return *s.Result
}

// Crumb is a CSRF token from /crumbIssuer/api/json.
type Crumb struct {
	Crumb        string `json:"crumb"`
	RequestField string `json:"crumbRequestField"`
}

func (c *Crumb) apply(req *http.Request) {
	if c != nil && c.RequestField != "" {
		req.Header.Set(c.RequestField, c.Crumb)
	}
}

// NewClient creates a Jenkins client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL string, creds provider.Credentials, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: httpClient,
	}
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JobPath turns a job name into its URL path. Folder names separated by "/"
// become nested /job/ segments: "team/app" -> "/job/team/job/app".
func JobPath(name string) string {
	var b strings.Builder
	for _, segment := range strings.Split(strings.Trim(name, "/"), "/") {
		if segment == "" {
			continue
		}
		b.WriteString("/job/")
		b.WriteString(url.PathEscape(segment))
	}
	return b.String()
}

// NewJob builds the BuildJob for the last build of the named job.
func NewJob(baseURL, name string, creds provider.Credentials) provider.BuildJob {
	base := strings.TrimRight(baseURL, "/")
	jobURL := base + JobPath(name)
	return provider.BuildJob{
		Name:        name,
		Provider:    ProviderName,
		StatusURL:   jobURL + "/lastBuild/api/json",
		ConsoleURL:  jobURL + "/lastBuild/consoleText",
		Credentials: creds,
		Metadata:    map[string]string{"base_url": base},
	}
}

// JobFromRef builds a BuildJob from a parsed Jenkins URL.
func JobFromRef(ref *provider.BuildRef, creds provider.Credentials) provider.BuildJob {
	return NewJob(ref.Metadata["base_url"], ref.BuildID, creds)
}

// Job returns the BuildJob for name on this client's server.
func (c *Client) Job(name string) provider.BuildJob {
	return NewJob(c.baseURL, name, c.creds)
}

// GetBuildStatus queries a status endpoint. Non-2xx answers come back as a
// *provider.StatusError; the undecoded payload is returned alongside.
func (c *Client) GetBuildStatus(ctx context.Context, statusURL string) (*BuildStatus, []byte, error) {
	resp, err := c.do(ctx, http.MethodGet, statusURL, nil, nil, "application/json")
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, provider.NewStatusError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read build status: %w", err)
	}

	var status BuildStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, raw, fmt.Errorf("failed to decode build status: %w", err)
	}

	return &status, raw, nil
}

// GetConsoleText fetches the plain-text console log.
func (c *Client) GetConsoleText(ctx context.Context, consoleURL string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, consoleURL, nil, nil, "text/plain")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", provider.NewStatusError(resp)
	}

	logBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read console text: %w", err)
	}

	return string(logBytes), nil
}

// Crumb fetches a CSRF crumb. It returns nil without error when the server
// has CSRF protection disabled (404 from the crumb issuer).
func (c *Client) Crumb(ctx context.Context) (*Crumb, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/crumbIssuer/api/json", nil, nil, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crumb request failed: %w", provider.NewStatusError(resp))
	}

	var crumb Crumb
	if err := json.NewDecoder(resp.Body).Decode(&crumb); err != nil {
		return nil, fmt.Errorf("failed to decode crumb: %w", err)
	}
	return &crumb, nil
}

// CreateJob creates a job from a verbatim config.xml. Names containing "/"
// are created inside the parent folder. An existing job yields an error
// wrapping provider.ErrJobExists.
func (c *Client) CreateJob(ctx context.Context, name, configXML string, crumb *Crumb) error {
	parent, leaf := splitJobName(name)
	target := fmt.Sprintf("%s%s/createItem?name=%s", c.baseURL, JobPath(parent), url.QueryEscape(leaf))

	header := http.Header{"Content-Type": []string{"application/xml"}}
	resp, err := c.do(ctx, http.MethodPost, target, strings.NewReader(configXML), crumb, "", header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	statusErr := provider.NewStatusError(resp)
	if resp.StatusCode == http.StatusBadRequest && alreadyExists(resp, statusErr.Body) {
		return fmt.Errorf("job %q: %w", name, provider.ErrJobExists)
	}
	return fmt.Errorf("failed to create job %q: %w", name, statusErr)
}

// TriggerBuild queues a build of the named job. Jenkins answers 201 (or 200
// on older versions).
func (c *Client) TriggerBuild(ctx context.Context, name string, crumb *Crumb) error {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+JobPath(name)+"/build", nil, crumb, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to trigger build of %q: %w", name, provider.NewStatusError(resp))
	}
	return nil
}

// Submit performs the whole trigger handshake: fetch a crumb, create the job
// from configXML, and queue a build. When the job already exists it is
// triggered anyway if reuseExisting is set; otherwise the ErrJobExists error
// is returned. The returned BuildJob is ready to be watched.
func (c *Client) Submit(ctx context.Context, name, configXML string, reuseExisting bool) (provider.BuildJob, error) {
	crumb, err := c.Crumb(ctx)
	if err != nil {
		return provider.BuildJob{}, err
	}

	if configXML != "" {
		if err := c.CreateJob(ctx, name, configXML, crumb); err != nil {
			if !errors.Is(err, provider.ErrJobExists) || !reuseExisting {
				return provider.BuildJob{}, err
			}
		}
	}

	if err := c.TriggerBuild(ctx, name, crumb); err != nil {
		return provider.BuildJob{}, err
	}

	return c.Job(name), nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, crumb *Crumb, accept string, headers ...http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.creds.Apply(req)
	crumb.apply(req)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	for _, h := range headers {
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	return resp, nil
}

func splitJobName(name string) (parent, leaf string) {
	name = strings.Trim(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func alreadyExists(resp *http.Response, body string) bool {
	return strings.Contains(strings.ToLower(body), "already exists") ||
		strings.Contains(strings.ToLower(resp.Header.Get("X-Error")), "already exists")
}
