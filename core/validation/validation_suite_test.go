package validation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func check(name string, result CheckResult) Check {
	return Check{Name: name, Run: func(ctx context.Context) CheckResult { return result }}
}

func TestValidationSuite_Counts(t *testing.T) {
	result := NewValidationSuite(
		check("one", Passed("ok")),
		check("two", Warned("low", errors.New("only a little"))),
		check("three", Passed("ok")),
	).WithShowProgress(false).Validate(context.Background())

	if !result.Success {
		t.Error("warnings should not fail the suite")
	}
	if result.TotalSteps != 3 || result.PassedSteps != 2 || result.Warnings != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", result.TotalSteps, result.PassedSteps, result.Warnings)
	}
	if err := result.GetFirstError(); err != nil {
		t.Errorf("GetFirstError() = %v, want nil for warnings", err)
	}
}

func TestValidationSuite_SkipsDependentChecks(t *testing.T) {
	ran := false
	dependent := Check{
		Name:            "network",
		RequiresPassing: true,
		Run: func(ctx context.Context) CheckResult {
			ran = true
			return Passed("")
		},
	}

	boom := errors.New("boom")
	result := NewValidationSuite(check("config", Failed("bad", boom)), dependent).
		WithShowProgress(false).
		Validate(context.Background())

	if ran {
		t.Error("dependent check should not run after a failure")
	}
	if result.Success {
		t.Error("suite should fail")
	}
	if result.Steps[1].Status != StepSkipped {
		t.Errorf("dependent status = %v, want skipped", result.Steps[1].Status)
	}
	if !errors.Is(result.GetFirstError(), boom) {
		t.Errorf("GetFirstError() = %v", result.GetFirstError())
	}
	if got := len(result.GetErrors()); got != 1 {
		t.Errorf("GetErrors() len = %d, want 1", got)
	}
}

func TestValidationSuite_FailFast(t *testing.T) {
	result := NewValidationSuite(
		check("first", Failed("bad", errors.New("x"))),
		check("second", Passed("ok")),
	).WithShowProgress(false).WithFailFast(true).Validate(context.Background())

	if len(result.Steps) != 1 {
		t.Errorf("steps = %d, want 1", len(result.Steps))
	}
}

func TestValidationSuite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewValidationSuite(check("only", Passed("ok"))).
		WithShowProgress(false).
		Validate(ctx)

	if result.Steps[0].Status != StepSkipped {
		t.Errorf("status = %v, want skipped", result.Steps[0].Status)
	}
}

func TestValidationSuite_ZeroStatusIsFailure(t *testing.T) {
	result := NewValidationSuite(check("empty", CheckResult{})).
		WithShowProgress(false).
		Validate(context.Background())

	if result.Success {
		t.Error("a check that reports no status should fail")
	}
}

func TestValidationSuite_Output(t *testing.T) {
	var buf bytes.Buffer
	NewValidationSuite(
		check("Good Step", Passed("fine")),
		check("Bad Step", Failed("broken", errors.New("detail here"))),
	).WithOutput(&buf).WithTitle("genfill check").Validate(context.Background())

	out := buf.String()
	for _, want := range []string{"genfill check", "✓ Good Step", "✗ Bad Step", "detail here", "Validation Failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSuiteResult_Summary(t *testing.T) {
	r := SuiteResult{TotalSteps: 4, PassedSteps: 2, FailedSteps: 1, Warnings: 1}
	got := r.Summary()
	for _, want := range []string{"Validation Failed", "2/4 checks passed", "1 failed", "1 warnings"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}

func TestStepStatus_String(t *testing.T) {
	tests := map[StepStatus]string{
		StepPending: "pending",
		StepPassed:  "passed",
		StepFailed:  "failed",
		StepWarning: "warning",
		StepSkipped: "skipped",
		99:          "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("StepStatus(%d).String() = %q, want %q", status, got, want)
		}
	}
}
