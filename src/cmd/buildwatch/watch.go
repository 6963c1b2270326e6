package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"buildwatch-agent/src/cmd/buildwatch/internal"
	"buildwatch-agent/src/contracts"
	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/pipeline"
	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/tui"
	"buildwatch-agent/src/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <job-name|build-url>",
	Short: "Wait for a build to finish and report its diagnostic line",
	Long: `Poll a build until it finishes or the budget runs out. A plain name is a
Jenkins job on JENKINS_URL; URLs may point at Jenkins, Buildkite or GitHub
Actions. The build is never triggered.

Exits with status 1 unless the build succeeded.

Example:
  buildwatch watch Flask_CICD_Agentic
  buildwatch watch https://buildkite.com/acme/web/builds/42 --max-wait 10m`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return internal.CheckFlags(
			internal.RequireOneOf(internal.Key(cmd, "provider"), provider.Names()...),
		)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd, pipeline.Request{
			Provider: viper.GetString(internal.Key(cmd, "provider")),
			Target:   args[0],
		})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger <job-name>",
	Short: "Create (optionally) and trigger a Jenkins job, then watch it",
	Long: `Fetch a CSRF crumb, create the job from --config when given, queue a build
and watch it. An existing job is not triggered unless --reuse-existing is set.

Example:
  buildwatch trigger Flask_CICD_Agentic --config job.xml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := pipeline.Request{
			Provider: "jenkins",
			Target:   args[0],
			Trigger:  true,
		}

		if path := viper.GetString(internal.Key(cmd, "config")); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read job config: %w", err)
			}
			req.ConfigXML = string(data)
			req.Trigger = viper.GetBool(internal.Key(cmd, "reuse-existing"))
		}

		return runWatch(cmd, req)
	},
}

func init() {
	internal.StringFlag(watchCmd, "provider", "CI provider (detected from the target when omitted)", "")
	internal.BoolFlag(watchCmd, "plain", "Print progress as log lines instead of the live view", false)
	internal.BoolFlag(watchCmd, "json", "Print the result as JSON", false)

	internal.StringFlag(triggerCmd, "config", "Job config.xml to create the job from", "")
	internal.BoolFlag(triggerCmd, "reuse-existing", "Trigger the job even if it already exists", false)
	internal.BoolFlag(triggerCmd, "plain", "Print progress as log lines instead of the live view", false)
	internal.BoolFlag(triggerCmd, "json", "Print the result as JSON", false)
}

// runWatch prepares and watches req, prints the report and maps the outcome
// to the exit status.
func runWatch(cmd *cobra.Command, req pipeline.Request) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !viper.GetBool(internal.Key(cmd, "plain")) && term.IsTerminal(int(os.Stdout.Fd()))

	var log logger.Logger = current.log.WithField("component", "watch")
	if interactive {
		log = logger.NewSilentLogger()
	}
	runner := pipeline.NewRunner(current.cfg, nil, current.watchOptions(log))

	var (
		result watch.Result
		p      provider.Provider
		err    error
	)
	start := func(ctx context.Context, observer watch.Observer) (watch.Result, error) {
		prepared, job, err := runner.Prepare(ctx, req)
		if err != nil {
			return watch.Result{}, err
		}
		p = prepared
		req.Observer = observer
		return runner.Watch(ctx, prepared, job, req)
	}

	if interactive {
		result, err = tui.Run(ctx, "Watching "+req.Target, stopWait(req), start)
	} else {
		result, err = start(ctx, plainObserver(log))
	}
	if err != nil {
		return err
	}

	if viper.GetBool(internal.Key(cmd, "json")) {
		if err := printJSON(cmd.OutOrStdout(), contracts.NewWatchEvent(contracts.NewRequestID(), p.Name(), result)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), watch.Report(result))
	}

	if !result.Succeeded {
		return errNotSucceeded
	}
	return nil
}

func plainObserver(log logger.Logger) watch.Observer {
	return func(p watch.Progress) {
		switch {
		case p.State.Terminal():
			log.Info("[Watch] %s: %s after %d polls (%s)", p.Job, p.State, p.Polls, p.Elapsed)
		case p.Err != nil:
			log.Info("[Watch] %s: poll %d inconclusive: %v", p.Job, p.Polls, p.Err)
		default:
			log.Debug("[Watch] %s: poll %d, still building", p.Job, p.Polls)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stopWait covers the poll interval the watcher may be sleeping through when
// the live view is closed, plus one request.
func stopWait(req pipeline.Request) time.Duration {
	interval := req.PollInterval
	if interval <= 0 {
		interval = current.cfg.PollInterval
	}
	if interval <= 0 {
		interval = watch.DefaultPollInterval
	}
	return interval + 30*time.Second
}
