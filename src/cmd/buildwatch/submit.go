package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"buildwatch-agent/src/cmd/buildwatch/internal"
	"buildwatch-agent/src/contracts"
	"buildwatch-agent/src/pipeline"
	"buildwatch-agent/src/provider"
)

var submitCmd = &cobra.Command{
	Use:   "submit <job-name|build-url>",
	Short: "Hand a build to the watch agents",
	Long: `Publish a watch request for the agents to process and print its request ID.
Requires REDPANDA_BROKERS or NATS_URL. With --wait the command blocks until
the result arrives and exits like 'watch'.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(current.cfg.RedpandaBrokers) == 0 && current.cfg.NATSURL == "" {
			return fmt.Errorf("%w: REDPANDA_BROKERS or NATS_URL is required to submit to agents", provider.ErrMissingConfig)
		}
		return internal.CheckFlags(
			internal.RequireOneOf(internal.Key(cmd, "provider"), provider.Names()...),
		)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := current.log.WithField("component", "submit")
		brk, _, err := openBroker(log)
		if err != nil {
			return err
		}
		defer brk.Close()

		st, err := openStore(ctx, log)
		if err != nil {
			return err
		}
		defer st.Close()

		d := pipeline.NewDispatcher(brk, st)

		wait := viper.GetBool(internal.Key(cmd, "wait"))
		var events <-chan contracts.WatchEvent
		if wait {
			if events, err = d.Results(ctx); err != nil {
				return err
			}
		}

		requestID, err := d.Submit(ctx, newWatchRequest(cmd, args[0]))
		if err != nil {
			return err
		}

		if !wait {
			fmt.Fprintln(cmd.OutOrStdout(), requestID)
			return nil
		}

		log.Info("Submitted %s, waiting for result...", requestID)
		event, err := pipeline.Await(ctx, events, requestID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), event.Report)
		if !event.Succeeded {
			return errNotSucceeded
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [request-id]",
	Short: "Show recorded watch requests",
	Long: `Show one request, or the most recent ones, from the Postgres store.
Requires POSTGRES_DSN.`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if current.cfg.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for status", provider.ErrMissingConfig)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		st, err := openStore(ctx, current.log)
		if err != nil {
			return err
		}
		defer st.Close()

		var records []contracts.WatchRecord
		if len(args) == 1 {
			record, err := st.GetRequest(ctx, args[0])
			if err != nil {
				return err
			}
			records = append(records, *record)
		} else {
			if records, err = st.ListRecent(ctx, viper.GetInt(internal.Key(cmd, "limit"))); err != nil {
				return err
			}
		}

		if viper.GetBool(internal.Key(cmd, "json")) {
			return printJSON(cmd.OutOrStdout(), records)
		}
		return printRecords(cmd, records)
	},
}

func init() {
	internal.StringFlag(submitCmd, "provider", "CI provider (detected from the target when omitted)", "")
	internal.BoolFlag(submitCmd, "trigger", "Trigger the Jenkins job before watching", false)
	internal.BoolFlag(submitCmd, "wait", "Wait for the result and exit like 'watch'", false)

	internal.IntFlag(statusCmd, "limit", "Number of recent requests to list", 20)
	internal.BoolFlag(statusCmd, "json", "Print records as JSON", false)
}

func printRecords(cmd *cobra.Command, records []contracts.WatchRecord) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REQUEST\tSTATUS\tOUTCOME\tPOLLS\tTARGET\tDIAGNOSTIC")
	for _, r := range records {
		diagnostic := r.DiagnosticLine
		if r.Error != "" {
			diagnostic = r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", r.RequestID, r.Status, r.Outcome, r.Polls, r.Target, diagnostic)
	}
	return w.Flush()
}

func newWatchRequest(cmd *cobra.Command, target string) contracts.WatchRequest {
	req := contracts.WatchRequest{
		Provider: viper.GetString(internal.Key(cmd, "provider")),
		Target:   target,
		Trigger:  viper.GetBool(internal.Key(cmd, "trigger")),
	}
	req.SetDurations(current.cfg.MaxWait, current.cfg.PollInterval)
	return req
}
