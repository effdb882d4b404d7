package vault

import "errors"

// Process exit codes shared by every vault command.
const (
	ExitOK         = 0
	ExitItemErrors = 1
	ExitConflicts  = 2
	ExitDrift      = 3
	ExitInvalid    = 4
)

// Report summarises the results of one run.
type Report struct {
	Results []Result
	DryRun  bool
}

func NewReport(results []Result, dryRun bool) Report {
	return Report{Results: results, DryRun: dryRun}
}

// Count returns how many items ended with outcome.
func (r Report) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// With returns the results that ended with outcome.
func (r Report) With(outcome Outcome) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}

// Changed reports whether any item was pushed or pulled.
func (r Report) Changed() bool {
	return r.Count(OutcomePushed)+r.Count(OutcomePulled) > 0
}

// ExitCode maps the run to a process exit status. Errors take precedence
// over conflicts so scripts see the more severe condition.
func (r Report) ExitCode() int {
	switch {
	case r.Count(OutcomeError) > 0:
		return ExitItemErrors
	case r.Count(OutcomeConflict) > 0:
		return ExitConflicts
	default:
		return ExitOK
	}
}

// Err joins every item error, or returns nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Outcome == OutcomeError && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}
