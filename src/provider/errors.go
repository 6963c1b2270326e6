package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrJobNotFound   = errors.New("job not found")
	ErrJobExists     = errors.New("job already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrMissingConfig = errors.New("missing configuration")
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 4096

// StatusError is a non-2xx answer from a CI server. The watcher treats it as
// "not yet conclusive" rather than a fault.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("API request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes onto the package sentinels so callers
// can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrJobNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// NewStatusError builds a StatusError from resp, reading at most a few KB of
// the body. The caller still owns resp.Body.
func NewStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	return &StatusError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// IsStatusError reports whether err is (or wraps) a *StatusError.
func IsStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	if errors.Is(err, ErrInvalidURL) {
		return &UserError{
			Message: "Invalid build URL",
			Hint:    "Supported formats:\n  - https://jenkins.example.com/job/my-job/\n  - https://buildkite.com/org/pipeline/builds/123\n  - https://github.com/owner/repo/actions/runs/456",
			Err:     err,
		}
	}

	if errors.Is(err, ErrAuthFailed) {
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that your credentials are valid and have the correct permissions.\n  - Jenkins: Set JENKINS_USER and JENKINS_API_TOKEN\n  - Buildkite: Set BUILDKITE_API_TOKEN\n  - GitHub: Set GITHUB_TOKEN",
			Err:     err,
		}
	}

	if errors.Is(err, ErrJobNotFound) {
		return &UserError{
			Message: "Job not found",
			Hint:    "Check that the job name or build URL is correct and you have access to it.",
			Err:     err,
		}
	}

	if errors.Is(err, ErrMissingConfig) {
		return &UserError{
			Message: "Missing configuration",
			Hint:    "Set JENKINS_URL (or pass --jenkins-url) to watch Jenkins jobs by name.",
			Err:     err,
		}
	}

	return err
}
