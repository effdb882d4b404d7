package vault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportExitCode(t *testing.T) {
	ok := Result{Outcome: OutcomePushed}
	skip := Result{Outcome: OutcomeSkipped}
	conflict := Result{Outcome: OutcomeConflict}
	failed := Result{Outcome: OutcomeError, Err: errors.New("boom")}

	assert.Equal(t, ExitOK, NewReport(nil, false).ExitCode(), "nothing to do")
	assert.Equal(t, ExitOK, NewReport([]Result{ok, skip}, false).ExitCode())
	assert.Equal(t, ExitConflicts, NewReport([]Result{ok, conflict}, false).ExitCode())
	assert.Equal(t, ExitItemErrors, NewReport([]Result{conflict, failed}, false).ExitCode(), "errors win over conflicts")
}

func TestReportCounts(t *testing.T) {
	r := NewReport([]Result{
		{Outcome: OutcomePushed},
		{Outcome: OutcomePulled},
		{Outcome: OutcomePulled},
		{Outcome: OutcomeSkipped},
	}, false)
	assert.Equal(t, 2, r.Count(OutcomePulled))
	assert.True(t, r.Changed())
	assert.NoError(t, r.Err())
	assert.False(t, NewReport([]Result{{Outcome: OutcomePlanned}}, true).Changed())
}
