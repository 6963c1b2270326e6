// Package config provides configuration management for buildwatch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"buildwatch-agent/src/provider"
)

const (
	DefaultMaxWait      = 300 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultLogFormat    = "text"
	DefaultMetricsAddr  = ":9090"
	DefaultWorkers      = 4
)

// Config holds the application configuration.
type Config struct {
	// JenkinsURL is the Jenkins server root, e.g. http://localhost:8080.
	JenkinsURL      string
	JenkinsUser     string
	JenkinsAPIToken string

	// BuildkiteAPIToken is the API token for authenticating with Buildkite.
	BuildkiteAPIToken string
	GitHubToken       string

	// Messaging and persistence for agent mode. All optional.
	RedpandaBrokers []string
	NATSURL         string
	PostgresDSN     string

	MaxWait      time.Duration
	PollInterval time.Duration
	Workers      int

	LogFormat   string // "text" or "json"
	Debug       bool
	MetricsAddr string
}

// LoadFromEnv loads configuration from environment variables. Nothing is
// required at load time; callers check what they need with the Require*
// methods.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		JenkinsURL:        strings.TrimRight(os.Getenv("JENKINS_URL"), "/"),
		JenkinsUser:       os.Getenv("JENKINS_USER"),
		JenkinsAPIToken:   os.Getenv("JENKINS_API_TOKEN"),
		BuildkiteAPIToken: os.Getenv("BUILDKITE_API_TOKEN"),
		GitHubToken:       os.Getenv("GITHUB_TOKEN"),
		RedpandaBrokers:   splitList(os.Getenv("REDPANDA_BROKERS")),
		NATSURL:           os.Getenv("NATS_URL"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		MaxWait:           DefaultMaxWait,
		PollInterval:      DefaultPollInterval,
		Workers:           DefaultWorkers,
		LogFormat:         DefaultLogFormat,
		MetricsAddr:       DefaultMetricsAddr,
	}

	var err error
	if cfg.MaxWait, err = durationEnv("BUILDWATCH_MAX_WAIT", DefaultMaxWait); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = durationEnv("BUILDWATCH_POLL_INTERVAL", DefaultPollInterval); err != nil {
		return nil, err
	}

	if v := os.Getenv("BUILDWATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("BUILDWATCH_WORKERS must be a positive integer, got %q", v)
		}
		cfg.Workers = n
	}

	if v := os.Getenv("BUILDWATCH_LOG_FORMAT"); v != "" {
		v = strings.ToLower(v)
		if v != "text" && v != "json" {
			return nil, fmt.Errorf("BUILDWATCH_LOG_FORMAT must be text or json, got %q", v)
		}
		cfg.LogFormat = v
	}

	if v := os.Getenv("BUILDWATCH_DEBUG"); v != "" {
		cfg.Debug, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("BUILDWATCH_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// JenkinsCredentials returns the basic-auth pair for Jenkins.
func (c *Config) JenkinsCredentials() provider.Credentials {
	return provider.Credentials{Username: c.JenkinsUser, Password: c.JenkinsAPIToken}
}

// CredentialsFor returns the credentials used for the named provider.
func (c *Config) CredentialsFor(providerName string) provider.Credentials {
	switch providerName {
	case "jenkins":
		return c.JenkinsCredentials()
	case "buildkite":
		return provider.Credentials{Token: c.BuildkiteAPIToken}
	case "github":
		return provider.Credentials{Token: c.GitHubToken}
	}
	return provider.Credentials{}
}

// RequireJenkins reports an error wrapping provider.ErrMissingConfig when
// the Jenkins server URL is not configured.
func (c *Config) RequireJenkins() error {
	if c.JenkinsURL == "" {
		return fmt.Errorf("%w: JENKINS_URL is required", provider.ErrMissingConfig)
	}
	return nil
}

// durationEnv parses a duration given either as whole seconds ("300") or as
// a Go duration ("5m").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDuration accepts whole seconds or a Go duration string. The result
// must be positive.
func ParseDuration(v string) (time.Duration, error) {
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		d, err = time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
