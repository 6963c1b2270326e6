// Demo program that plays a simulated build watch through the live view.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"buildwatch-agent/src/provider"
	"buildwatch-agent/src/tui"
	"buildwatch-agent/src/watch"
)

func main() {
	start := func(ctx context.Context, observer watch.Observer) (watch.Result, error) {
		var elapsed time.Duration
		for polls := 1; polls <= 6; polls++ {
			select {
			case <-ctx.Done():
				return watch.Result{}, ctx.Err()
			case <-time.After(700 * time.Millisecond):
			}
			observer(watch.Progress{
				Job:     "Flask_CICD_Agentic",
				State:   watch.Polling,
				Polls:   polls,
				Elapsed: elapsed,
				Last:    &provider.PollOutcome{Building: polls < 6},
			})
			elapsed += 5 * time.Second
		}
		return watch.Result{
			Job:            "Flask_CICD_Agentic",
			Succeeded:      true,
			Verdict:        "SUCCESS",
			DiagnosticLine: `{"message": "Hello from Flask", "status": "running"}`,
			Polls:          6,
			Elapsed:        25 * time.Second,
		}, nil
	}

	result, err := tui.Run(context.Background(), "Watching Flask_CICD_Agentic (demo)", 0, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running demo: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(watch.Report(result))
}
