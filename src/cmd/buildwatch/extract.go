package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildwatch-agent/src/cmd/buildwatch/internal"
	"buildwatch-agent/src/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract [console-file]",
	Short: "Pick the diagnostic line out of saved console output",
	Long: `Scan console text (a file, or stdin when no file or "-" is given) the same
way a watch does and print the diagnostic line.

Example:
  curl -s $JENKINS_URL/job/app/lastBuild/consoleText | buildwatch extract --result SUCCESS`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read console output: %w", err)
		}

		runner := pipeline.NewRunner(current.cfg, nil, current.watchOptions(current.log))
		extraction := runner.Extract(string(data), viper.GetString(internal.Key(cmd, "result")))
		if viper.GetBool(internal.Key(cmd, "json")) {
			return printJSON(cmd.OutOrStdout(), extraction)
		}

		fmt.Fprintln(cmd.OutOrStdout(), extraction.DiagnosticLine)
		if !extraction.Found {
			return errNotSucceeded
		}
		return nil
	},
}

func init() {
	internal.StringFlag(extractCmd, "result", "Result declared by the CI server (e.g. SUCCESS)", "")
	internal.BoolFlag(extractCmd, "json", "Print verdict and line as JSON", false)
}
