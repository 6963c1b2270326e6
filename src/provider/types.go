package provider

import "net/http"

// Result is the verdict a CI server reports for a finished build.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE"
	// ResultUnknown is reported while the build is still running, or when a
	// finished build carries no result at all.
	ResultUnknown Result = "UNKNOWN"
)

func (r Result) String() string {
	return string(r)
}

// ParseResult maps a raw result string to a Result. Only "SUCCESS" is a
// success; any other non-empty value (UNSTABLE, ABORTED, ...) is a failure.
func ParseResult(raw string) Result {
	switch raw {
	case "":
		return ResultUnknown
	case string(ResultSuccess):
		return ResultSuccess
	default:
		return ResultFailure
	}
}

// Credentials authenticate status and console queries. Username/Password is
// sent as basic auth (Jenkins); Token alone is sent as a bearer token.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Apply sets the Authorization header on req.
func (c Credentials) Apply(req *http.Request) {
	switch {
	case c.Username != "":
		req.SetBasicAuth(c.Username, c.Password)
	case c.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// BuildJob identifies one unit of asynchronous CI work to watch.
type BuildJob struct {
	Name        string            // Job name as known to the CI server
	Provider    string            // "jenkins", "buildkite" or "github"
	StatusURL   string            // Endpoint answering "is it still building?"
	ConsoleURL  string            // Endpoint returning the full console log
	Credentials Credentials       // Sent with every query
	Metadata    map[string]string // Provider-specific identifiers
}

// PollOutcome is the result of a single status query.
type PollOutcome struct {
	Building  bool
	Result    Result
	RawResult string // Result exactly as the server reported it
	Raw       []byte // Undecoded status payload
}

// BuildRef identifies a build parsed out of a URL.
type BuildRef struct {
	Provider string            // "jenkins", "buildkite" or "github"
	BuildID  string            // Job name, build number or run ID
	Metadata map[string]string // Provider-specific metadata
}
