package jenkins

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"buildwatch-agent/src/clock"
	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/watch"
)

func TestProviderRegistered(t *testing.T) {
	p, err := provider.New(ProviderName, nil)
	if err != nil {
		t.Fatalf("provider.New(%q) error = %v", ProviderName, err)
	}
	if p.Name() != ProviderName {
		t.Errorf("Name() = %q, want %q", p.Name(), ProviderName)
	}
}

func TestProvider_FetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"building": false, "result": "UNSTABLE"}`)
	}))
	defer server.Close()

	p := NewProvider(server.Client())
	outcome, err := p.FetchStatus(context.Background(), NewJob(server.URL, "app", testCreds))
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if outcome.Building {
		t.Error("Building = true, want false")
	}
	if outcome.Result != provider.ResultFailure {
		t.Errorf("Result = %v, want FAILURE", outcome.Result)
	}
	if outcome.RawResult != "UNSTABLE" {
		t.Errorf("RawResult = %q, want UNSTABLE", outcome.RawResult)
	}
}

// End to end against a fake Jenkins: two running polls then success.
func TestProvider_WatchEndToEnd(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requireBasicAuth(t, r)
		switch r.URL.Path {
		case "/job/Flask_CICD_Agentic/lastBuild/api/json":
			if atomic.AddInt32(&polls, 1) < 3 {
				_, _ = io.WriteString(w, `{"building": true, "result": null}`)
				return
			}
			_, _ = io.WriteString(w, `{"building": false, "result": "SUCCESS"}`)
		case "/job/Flask_CICD_Agentic/lastBuild/consoleText":
			_, _ = io.WriteString(w, "+ sudo curl http://localhost:5000/info\n{\"app\": \"flask\", \"status\": \"running\"}\nFinished: SUCCESS\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fake := clock.Fake(time.Unix(0, 0))
	w := watch.New(NewProvider(server.Client()), watch.Options{Clock: fake})
	result := w.Watch(context.Background(), NewJob(server.URL, "Flask_CICD_Agentic", testCreds), 300*time.Second, 5*time.Second)

	if !result.Succeeded {
		t.Fatalf("Succeeded = false, result = %+v", result)
	}
	if result.DiagnosticLine != `{"app": "flask", "status": "running"}` {
		t.Errorf("DiagnosticLine = %q", result.DiagnosticLine)
	}
	if result.Polls != 3 || result.Elapsed != 10*time.Second {
		t.Errorf("Polls = %d, Elapsed = %s, want 3 and 10s", result.Polls, result.Elapsed)
	}
}

func TestProvider_WatchServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	job := NewJob(server.URL, "app", testCreds)
	server.Close()

	w := watch.New(NewProvider(nil), watch.Options{Clock: clock.Fake(time.Unix(0, 0))})
	result := w.Watch(context.Background(), job, time.Minute, time.Second)

	if result.Fault != watch.FaultTransport {
		t.Errorf("Fault = %v, want transport_fault", result.Fault)
	}
	if result.Polls != 1 {
		t.Errorf("Polls = %d, want 1", result.Polls)
	}
}
