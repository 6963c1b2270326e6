// Package main provides the buildwatch CLI: watch CI builds, trigger Jenkins
// jobs, and run the watch agent or MCP server.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildwatch-agent/src/cmd/buildwatch/internal"
	"buildwatch-agent/src/config"
	"buildwatch-agent/src/logger"
	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/watch"
)

var version = "dev"

// app holds what PersistentPreRunE prepared for the subcommands.
type app struct {
	cfg     *config.Config
	profile *config.Profile
	log     *logger.ConsoleLogger
}

var current app

// errNotSucceeded makes the process exit with status 1 after the report has
// already been printed.
var errNotSucceeded = errors.New("build did not succeed")

var rootCmd = &cobra.Command{
	Use:   "buildwatch",
	Short: "Watch CI builds until they finish and report a diagnostic line",
	Long: `buildwatch polls a CI build (Jenkins, Buildkite or GitHub Actions) until it
finishes or a time budget runs out, then reports the verdict and the
diagnostic line recovered from the console output.

Configuration comes from the environment (JENKINS_URL, JENKINS_USER,
JENKINS_API_TOKEN, BUILDKITE_API_TOKEN, GITHUB_TOKEN, ...); flags override it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := internal.CheckFlags(
			internal.RequireDuration("max-wait"),
			internal.RequireDuration("poll-interval"),
			internal.RequireOneOf("log-format", "text", "json"),
		); err != nil {
			return err
		}

		cfg, profile, err := loadConfig()
		if err != nil {
			return err
		}
		current = app{
			cfg:     cfg,
			profile: profile,
			log:     logger.New(cfg.LogFormat, cfg.Debug),
		}
		return nil
	},
}

func init() {
	internal.PersistentStringFlag(rootCmd, "jenkins-url", "Jenkins server URL (overrides JENKINS_URL)", "")
	internal.PersistentStringFlag(rootCmd, "jenkins-user", "Jenkins user (overrides JENKINS_USER)", "")
	internal.PersistentStringFlag(rootCmd, "profile", "YAML watch profile (markers, sentinel, durations)", "")
	internal.PersistentStringFlag(rootCmd, "max-wait", "Polling budget, seconds or Go duration (default 300s)", "")
	internal.PersistentStringFlag(rootCmd, "poll-interval", "Time between status queries (default 5s)", "")
	internal.PersistentStringFlag(rootCmd, "log-format", "Log format: text or json", "")
	internal.PersistentBoolFlag(rootCmd, "debug", "Enable debug logging", false)

	rootCmd.AddCommand(watchCmd, triggerCmd, extractCmd, submitCmd, statusCmd, agentCmd, mcpCmd)
}

// loadConfig reads the environment, then the profile, then flags; later
// sources win.
func loadConfig() (*config.Config, *config.Profile, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, err
	}

	profile := &config.Profile{}
	if path := viper.GetString("profile"); path != "" {
		if profile, err = config.LoadProfile(path); err != nil {
			return nil, nil, err
		}
		profile.Apply(cfg)
	}

	if viper.IsSet("jenkins-url") {
		cfg.JenkinsURL = strings.TrimRight(viper.GetString("jenkins-url"), "/")
	}
	if viper.IsSet("jenkins-user") {
		cfg.JenkinsUser = viper.GetString("jenkins-user")
	}
	if viper.IsSet("max-wait") {
		if cfg.MaxWait, err = config.ParseDuration(viper.GetString("max-wait")); err != nil {
			return nil, nil, err
		}
	}
	if viper.IsSet("poll-interval") {
		if cfg.PollInterval, err = config.ParseDuration(viper.GetString("poll-interval")); err != nil {
			return nil, nil, err
		}
	}
	if viper.IsSet("log-format") {
		cfg.LogFormat = viper.GetString("log-format")
	}
	if viper.GetBool("debug") {
		cfg.Debug = true
	}

	return cfg, profile, nil
}

// watchOptions builds the watcher options shared by every command.
func (a app) watchOptions(log logger.Logger) watch.Options {
	return watch.Options{
		Logger:    log,
		Extractor: a.profile.Extractor(),
		KeepANSI:  a.profile.KeepANSI(),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errNotSucceeded) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", provider.WrapError(err))
		}
		os.Exit(1)
	}
}
