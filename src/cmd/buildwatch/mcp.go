package main

import (
	"github.com/spf13/cobra"

	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/mcp"
	"buildwatch-agent/src/pipeline"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve watch tools to an LLM agent over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing watch_build,
trigger_build, extract_diagnostic and get_watch_result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; keep logs off it.
		runner := pipeline.NewRunner(current.cfg, nil, current.watchOptions(logger.NewSilentLogger()))
		return mcp.NewServer(runner, version).Run()
	},
}
