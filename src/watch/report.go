package watch

import (
	"fmt"
)

// Report renders a result for humans. Build success, build failure, timeout
// and transport fault each get a distinct message.
func Report(r Result) string {
	subject := "build"
	if r.Job != "" {
		subject = fmt.Sprintf("build %q", r.Job)
	}

	switch r.Outcome() {
	case OutcomeTransportFault:
		return fmt.Sprintf("Error checking %s: %s", subject, r.DiagnosticLine)
	case OutcomeTimeout:
		return fmt.Sprintf("Gave up on %s: timed out after waiting %s (%d polls).", subject, r.Elapsed, r.Polls)
	case OutcomeSuccess:
		return fmt.Sprintf("Successful %s. Diagnostic output:\n%s", subject, r.DiagnosticLine)
	default:
		verdict := r.Verdict
		if verdict == "" {
			verdict = "UNKNOWN"
		}
		return fmt.Sprintf("Failed %s (%s). Reason:\n%s", subject, verdict, r.DiagnosticLine)
	}
}
