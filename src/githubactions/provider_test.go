package githubactions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"buildwatch-agent/src/provider"
)

func TestGitHubProvider_Name(t *testing.T) {
	p := NewProvider(nil)
	if p.Name() != "github" {
		t.Errorf("Name() = %v, want github", p.Name())
	}
}

func TestJobFromRef(t *testing.T) {
	ref, err := provider.ParseURL("https://github.com/owner/repo/actions/runs/123")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}

	job := JobFromRef(ref, "tok")
	if job.StatusURL != "https://api.github.com/repos/owner/repo/actions/runs/123" {
		t.Errorf("StatusURL = %q", job.StatusURL)
	}
	if job.Metadata["run_id"] != "123" {
		t.Errorf("run_id = %q, want 123", job.Metadata["run_id"])
	}
	if job.Credentials.Token != "tok" {
		t.Errorf("Token = %q, want tok", job.Credentials.Token)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status       string
		conclusion   string
		wantBuilding bool
		wantResult   string
	}{
		{"queued", "", true, ""},
		{"in_progress", "", true, ""},
		{"waiting", "", true, ""},
		{"completed", "success", false, "SUCCESS"},
		{"completed", "failure", false, "FAILURE"},
		{"completed", "cancelled", false, "CANCELLED"},
		{"completed", "", false, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.conclusion, func(t *testing.T) {
			building, result := MapStatus(tt.status, tt.conclusion)
			if building != tt.wantBuilding || result != tt.wantResult {
				t.Errorf("MapStatus(%q, %q) = (%v, %q), want (%v, %q)",
					tt.status, tt.conclusion, building, result, tt.wantBuilding, tt.wantResult)
			}
		})
	}
}

func TestGitHubProvider_FetchStatusAndConsole(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/testowner/testrepo/actions/runs/12345":
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
				t.Errorf("Authorization header = %v, want Bearer test-token", auth)
			}
			json.NewEncoder(w).Encode(WorkflowRun{ID: 12345, Status: "completed", Conclusion: "success"})
		case "/repos/testowner/testrepo/actions/runs/12345/jobs":
			json.NewEncoder(w).Encode(WorkflowJobsResponse{
				TotalCount: 2,
				Jobs: []WorkflowJob{
					{ID: 1, Name: "test"},
					{ID: 2, Name: "probe"},
				},
			})
		case "/repos/testowner/testrepo/actions/jobs/1/logs", "/repos/testowner/testrepo/actions/jobs/2/logs":
			id := r.URL.Path[len("/repos/testowner/testrepo/actions/jobs/")]
			w.Header().Set("Location", fmt.Sprintf("%s/blob/%c", serverURL, id))
			w.WriteHeader(http.StatusFound)
		case "/blob/1":
			w.Write([]byte("5 passed"))
		case "/blob/2":
			w.Write([]byte("Run curl localhost:5000\nHello World\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	serverURL = server.URL

	c := NewClient("test-token", server.Client())
	c.baseURL = server.URL
	job := jobFromRef(c, &provider.BuildRef{
		Provider: "github",
		BuildID:  "12345",
		Metadata: map[string]string{"owner": "testowner", "repo": "testrepo"},
	}, "test-token")
	job.Metadata["api_base"] = server.URL

	p := NewProvider(server.Client())

	outcome, err := p.FetchStatus(context.Background(), job)
	if err != nil {
		t.Fatalf("FetchStatus() error = %v", err)
	}
	if outcome.Building || outcome.Result != provider.ResultSuccess {
		t.Errorf("outcome = %+v, want finished SUCCESS", outcome)
	}

	console, err := p.FetchConsole(context.Background(), job)
	if err != nil {
		t.Fatalf("FetchConsole() error = %v", err)
	}
	want := "--- test ---\n5 passed\n--- probe ---\nRun curl localhost:5000\nHello World\n"
	if console != want {
		t.Errorf("console = %q, want %q", console, want)
	}
}
