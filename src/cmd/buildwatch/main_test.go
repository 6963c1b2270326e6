package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildwatch-agent/src/config"
	"buildwatch-agent/src/pipeline"
)

// setFlag sets a persistent root flag for the duration of the test.
func setFlag(t *testing.T, name, value string) {
	t.Helper()
	f := rootCmd.PersistentFlags().Lookup(name)
	require.NotNil(t, f, name)
	old := f.Value.String()
	require.NoError(t, rootCmd.PersistentFlags().Set(name, value))
	t.Cleanup(func() {
		_ = f.Value.Set(old)
		f.Changed = false
	})
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("JENKINS_URL", "http://env:8080")
	t.Setenv("BUILDWATCH_MAX_WAIT", "60")

	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("max_wait: 2m\npoll_interval: 10s\nmarkers: [\"READY\"]\n"), 0o644))

	setFlag(t, "jenkins-url", "http://flag:8080/")
	setFlag(t, "profile", profile)
	setFlag(t, "poll-interval", "3s")

	cfg, p, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://flag:8080", cfg.JenkinsURL)
	assert.Equal(t, 2*time.Minute, cfg.MaxWait)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"READY"}, p.Extractor().Markers)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JENKINS_URL", "http://env:8080/")

	cfg, p, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://env:8080", cfg.JenkinsURL)
	assert.Equal(t, 300*time.Second, cfg.MaxWait)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.False(t, p.KeepANSI())
}

func TestExtractCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("+ curl -s http://localhost:5000\n\x1b[1mHello, World!\x1b[0m\nFinished: SUCCESS\n"))
	rootCmd.SetArgs([]string{"extract"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Hello, World!\n", out.String())
}

func TestExtractCommandMiss(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("nothing to see\n"))
	rootCmd.SetArgs([]string{"extract"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	assert.True(t, errors.Is(err, errNotSucceeded))
	assert.Equal(t, "Curl response not captured.\n", out.String())
}

func TestWatchRequiresJenkinsURL(t *testing.T) {
	t.Setenv("JENKINS_URL", "")
	rootCmd.SetArgs([]string{"watch", "--plain", "some-job"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JENKINS_URL is required")
}

func TestSubmitKeepsSubSecondDurations(t *testing.T) {
	t.Setenv("JENKINS_URL", "http://env:8080")
	setFlag(t, "max-wait", "1500ms")
	setFlag(t, "poll-interval", "500ms")

	cfg, p, err := loadConfig()
	require.NoError(t, err)

	saved := current
	t.Cleanup(func() { current = saved })
	current = app{cfg: cfg, profile: p}

	req := newWatchRequest(submitCmd, "app")
	assert.Equal(t, "app", req.Target)
	assert.Equal(t, 1500*time.Millisecond, req.MaxWait())
	assert.Equal(t, 500*time.Millisecond, req.PollInterval())
}

func TestStopWaitCoversPollInterval(t *testing.T) {
	saved := current
	t.Cleanup(func() { current = saved })
	current = app{cfg: &config.Config{PollInterval: 2 * time.Minute}}

	assert.Greater(t, stopWait(pipeline.Request{}), 2*time.Minute)
	assert.Greater(t, stopWait(pipeline.Request{PollInterval: 10 * time.Minute}), 10*time.Minute)
}
