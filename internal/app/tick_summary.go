package app

import (
	"fmt"
	"strings"
)

// TickSummary counts tick outcomes by status.
type TickSummary struct {
	Total       int
	Sent        int
	Failed      int
	Skipped     int
	Deactivated int
	Failures    []TickOutcome
}

func SummarizeOutcomes(outcomes []TickOutcome) TickSummary {
	s := TickSummary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case OutcomeSent:
			s.Sent++
		case OutcomeFailed:
			s.Failed++
			s.Failures = append(s.Failures, o)
		case OutcomeSkipped:
			s.Skipped++
		case OutcomeDeactivated:
			s.Deactivated++
		}
	}
	return s
}

// maxListedFailures caps the failures listed in String.
const maxListedFailures = 5

func (s TickSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaign tick: %d processed, %d sent, %d failed, %d skipped, %d deactivated",
		s.Total, s.Sent, s.Failed, s.Skipped, s.Deactivated)
	for i, f := range s.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "\n... and %d more", len(s.Failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "\n- %s week %d: %v", f.UserID, f.WeekNumber, f.Err)
	}
	return b.String()
}
