package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildwatch-agent/src/clock"
	"buildwatch-agent/src/config"
	"buildwatch-agent/src/watch"
)

// fakeJenkins serves one job that builds for two polls and then succeeds.
type fakeJenkins struct {
	mu        sync.Mutex
	polls     int32
	created   []string
	triggered int
	existing  bool
}

func (f *fakeJenkins) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/crumbIssuer/api/json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"crumb":"c1","crumbRequestField":"Jenkins-Crumb"}`)
	})
	mux.HandleFunc("/createItem", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.existing {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "A job already exists with the name")
			return
		}
		f.created = append(f.created, r.URL.Query().Get("name"))
	})
	mux.HandleFunc("/job/app/build", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.triggered++
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/job/app/lastBuild/api/json", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&f.polls, 1) < 3 {
			_, _ = io.WriteString(w, `{"building": true, "result": null}`)
			return
		}
		_, _ = io.WriteString(w, `{"building": false, "result": "SUCCESS"}`)
	})
	mux.HandleFunc("/job/app/lastBuild/consoleText", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "+ curl -s localhost:5000\nHello, World!\nFinished: SUCCESS\n")
	})
	return mux
}

func newRunner(t *testing.T, server *httptest.Server) *Runner {
	t.Helper()
	cfg := &config.Config{
		JenkinsURL:      server.URL,
		JenkinsUser:     "admin",
		JenkinsAPIToken: "token",
		MaxWait:         300 * time.Second,
		PollInterval:    5 * time.Second,
	}
	return NewRunner(cfg, server.Client(), watch.Options{Clock: clock.Fake(time.Unix(0, 0))})
}

func TestRunnerRun(t *testing.T) {
	fake := &fakeJenkins{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	var states []watch.State
	result, err := newRunner(t, server).Run(context.Background(), Request{
		Target:   "app",
		Observer: func(p watch.Progress) { states = append(states, p.State) },
	})
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	assert.Equal(t, "Hello, World!", result.DiagnosticLine)
	assert.Equal(t, 3, result.Polls)
	assert.Equal(t, 10*time.Second, result.Elapsed)
	assert.Equal(t, watch.Finished, states[len(states)-1])
	assert.Zero(t, fake.triggered)
}

func TestRunnerCreateAndTrigger(t *testing.T) {
	fake := &fakeJenkins{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	result, err := newRunner(t, server).Run(context.Background(), Request{
		Target:    "app",
		ConfigXML: "<project/>",
	})
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	assert.Equal(t, []string{"app"}, fake.created)
	assert.Equal(t, 1, fake.triggered)
}

func TestRunnerExistingJobNotTriggered(t *testing.T) {
	fake := &fakeJenkins{existing: true}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	_, err := newRunner(t, server).Run(context.Background(), Request{
		Target:    "app",
		ConfigXML: "<project/>",
	})
	require.Error(t, err)
	assert.Zero(t, fake.triggered)
}

func TestRunnerTriggerOnlyJenkins(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, _, err := newRunner(t, server).Prepare(context.Background(), Request{
		Target:  "https://buildkite.com/acme/web/builds/1",
		Trigger: true,
	})
	assert.ErrorContains(t, err, "only supported on jenkins")
}

func TestRunnerTimeoutUsesConfiguredBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"building": true, "result": null}`)
	}))
	defer server.Close()

	r := newRunner(t, server)
	r.cfg.MaxWait = 20 * time.Second

	result, err := r.Run(context.Background(), Request{Target: "app"})
	require.NoError(t, err)
	assert.True(t, result.TimedOut)
	assert.Equal(t, 4, result.Polls)
	assert.Equal(t, watch.TimedOutMessage, result.DiagnosticLine)
}
