// Package mcp exposes build watching to LLM agents as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"buildwatch-agent/src/contracts"
	"buildwatch-agent/src/pipeline"
	"buildwatch-agent/src/provider"
)

// Server is the MCP server for buildwatch.
type Server struct {
	mcpServer *server.MCPServer
	runner    *pipeline.Runner
	results   *ResultCache
}

// NewServer creates a new MCP server that watches builds and scans console
// text with runner.
func NewServer(runner *pipeline.Runner, version string) *Server {
	s := server.NewMCPServer(
		"buildwatch",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		runner:    runner,
		results:   NewResultCache(0),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	watchTool := mcp.NewTool("watch_build",
		mcp.WithDescription("Wait for a CI build to finish and return its verdict plus one diagnostic line from the console output. Accepts a Jenkins job name (on the configured JENKINS_URL) or a Jenkins, Buildkite or GitHub Actions build URL. Never triggers a build."),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Jenkins job name or build URL"),
		),
		mcp.WithString("provider",
			mcp.Description("CI provider; detected from the target when omitted"),
			mcp.Enum("jenkins", "buildkite", "github"),
		),
		mcp.WithNumber("max_wait_seconds",
			mcp.Description("Polling budget in seconds (default: 300)"),
		),
		mcp.WithNumber("poll_interval_seconds",
			mcp.Description("Seconds between status queries (default: 5)"),
		),
	)

	triggerTool := mcp.NewTool("trigger_build",
		mcp.WithDescription("Create a Jenkins job from config.xml (optional), queue a build and wait for it to finish. An existing job is only triggered when reuse_existing is true."),
		mcp.WithString("job",
			mcp.Required(),
			mcp.Description("Jenkins job name, folders separated by '/'"),
		),
		mcp.WithString("config_xml",
			mcp.Description("Job definition; when omitted the existing job is triggered"),
		),
		mcp.WithBoolean("reuse_existing",
			mcp.Description("Trigger the job even if it already exists (default: false)"),
		),
		mcp.WithNumber("max_wait_seconds",
			mcp.Description("Polling budget in seconds (default: 300)"),
		),
		mcp.WithNumber("poll_interval_seconds",
			mcp.Description("Seconds between status queries (default: 5)"),
		),
	)

	extractTool := mcp.NewTool("extract_diagnostic",
		mcp.WithDescription("Pick the diagnostic line out of console text already at hand: the last line with a response marker that is not the command which produced it."),
		mcp.WithString("console",
			mcp.Required(),
			mcp.Description("Full console output"),
		),
		mcp.WithString("result",
			mcp.Description("Result declared by the CI server, e.g. SUCCESS or FAILURE"),
		),
	)

	resultTool := mcp.NewTool("get_watch_result",
		mcp.WithDescription("Return the result of an earlier watch_build or trigger_build call."),
		mcp.WithString("request_id",
			mcp.Required(),
			mcp.Description("Request ID from an earlier response"),
		),
	)

	s.mcpServer.AddTool(watchTool, s.handleWatchBuild)
	s.mcpServer.AddTool(triggerTool, s.handleTriggerBuild)
	s.mcpServer.AddTool(extractTool, s.handleExtractDiagnostic)
	s.mcpServer.AddTool(resultTool, s.handleGetWatchResult)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleWatchBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := request.GetString("target", "")
	if target == "" {
		return mcp.NewToolResultError("target parameter is required"), nil
	}

	return s.run(ctx, pipeline.Request{
		Provider:     request.GetString("provider", ""),
		Target:       target,
		MaxWait:      seconds(request.GetFloat("max_wait_seconds", 0)),
		PollInterval: seconds(request.GetFloat("poll_interval_seconds", 0)),
	})
}

func (s *Server) handleTriggerBuild(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	job := request.GetString("job", "")
	if job == "" {
		return mcp.NewToolResultError("job parameter is required"), nil
	}

	return s.run(ctx, pipeline.Request{
		Provider:     "jenkins",
		Target:       job,
		ConfigXML:    request.GetString("config_xml", ""),
		Trigger:      request.GetBool("reuse_existing", false) || request.GetString("config_xml", "") == "",
		MaxWait:      seconds(request.GetFloat("max_wait_seconds", 0)),
		PollInterval: seconds(request.GetFloat("poll_interval_seconds", 0)),
	})
}

func (s *Server) handleExtractDiagnostic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	console := request.GetString("console", "")
	if console == "" {
		return mcp.NewToolResultError("console parameter is required"), nil
	}

	extraction := s.runner.Extract(console, request.GetString("result", ""))
	return jsonResult(extraction)
}

func (s *Server) handleGetWatchResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID := request.GetString("request_id", "")
	if requestID == "" {
		return mcp.NewToolResultError("request_id parameter is required"), nil
	}

	event, ok := s.results.Get(requestID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no result for request_id=%s", requestID)), nil
	}
	return jsonResult(event)
}

// run watches req and returns the WatchEvent as JSON. Watch outcomes,
// including failed builds and timeouts, are normal results; only a watch
// that cannot start is a tool error.
func (s *Server) run(ctx context.Context, req pipeline.Request) (*mcp.CallToolResult, error) {
	p, job, err := s.runner.Prepare(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(provider.WrapError(err).Error()), nil
	}

	result, err := s.runner.Watch(ctx, p, job, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	event := contracts.NewWatchEvent(contracts.NewRequestID(), p.Name(), result)
	s.results.Put(event)
	return jsonResult(event)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
