// Package validation checks that the local environment can run generations:
// configuration values, writable directories, free disk space and endpoint
// reachability. Results are printed as a colored checklist.
package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ValidationStep is the recorded outcome of one check.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus is the state of a check.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

var statusNames = map[StepStatus]string{
	StepPending: "pending",
	StepRunning: "running",
	StepPassed:  "passed",
	StepFailed:  "failed",
	StepWarning: "warning",
	StepSkipped: "skipped",
}

func (s StepStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// stepStyle is the icon and color a status is printed with.
type stepStyle struct {
	icon string
	clr  *color.Color
}

var stepStyles = map[StepStatus]stepStyle{
	StepPassed:  {"✓", color.New(color.FgGreen)},
	StepFailed:  {"✗", color.New(color.FgRed)},
	StepWarning: {"!", color.New(color.FgYellow)},
	StepSkipped: {"○", color.New(color.FgHiBlack)},
}

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	detailColor = color.New(color.FgHiBlack)
)

// CheckResult is what a Check reports back to the suite.
type CheckResult struct {
	Status  StepStatus
	Message string
	Error   error
}

// Passed reports a successful check.
func Passed(message string) CheckResult { return CheckResult{Status: StepPassed, Message: message} }

// Failed reports a check that fails the suite.
func Failed(message string, err error) CheckResult {
	return CheckResult{Status: StepFailed, Message: message, Error: err}
}

// Warned reports a problem that does not fail the suite.
func Warned(message string, err error) CheckResult {
	return CheckResult{Status: StepWarning, Message: message, Error: err}
}

// Check is one named validation step.
type Check struct {
	Name string

	// RequiresPassing skips the check when any earlier check failed.
	// Network checks set this so a bad URL is not reported twice.
	RequiresPassing bool

	Run func(ctx context.Context) CheckResult
}

// SuiteResult aggregates every step of one Validate call.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite runs checks in order with colored progress output.
// Warnings do not fail the suite.
//
// Usage:
//
//	suite := validation.NewValidationSuite(
//	    validation.BaseURLCheck(cfg.APIBaseURL),
//	    validation.DirectoryCheck("Data Directory", cfg.DataDir),
//	).WithTitle("genfill environment check")
//	result := suite.Validate(ctx)
type ValidationSuite struct {
	output       io.Writer
	title        string
	checks       []Check
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a suite writing progress to stdout.
func NewValidationSuite(checks ...Check) *ValidationSuite {
	return &ValidationSuite{
		output:       os.Stdout,
		title:        "Environment Check",
		checks:       checks,
		showProgress: true,
	}
}

func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

func (s *ValidationSuite) WithTitle(title string) *ValidationSuite {
	s.title = title
	return s
}

// WithShowProgress turns the checklist output on or off. Results are the same either way.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failed check. Later checks are not recorded.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// Add appends checks.
func (s *ValidationSuite) Add(checks ...Check) *ValidationSuite {
	s.checks = append(s.checks, checks...)
	return s
}

// Validate runs every check in sequence. A cancelled context skips the
// remaining checks.
func (s *ValidationSuite) Validate(ctx context.Context) SuiteResult {
	began := time.Now()
	if s.showProgress {
		fmt.Fprintln(s.output)
		titleColor.Fprintf(s.output, "━━━ %s ━━━\n", s.title)
		fmt.Fprintln(s.output)
	}

	result := SuiteResult{Steps: make([]ValidationStep, 0, len(s.checks)), Success: true}
	for _, check := range s.checks {
		var step ValidationStep
		switch {
		case ctx.Err() != nil:
			step = ValidationStep{Name: check.Name, Status: StepSkipped, Message: "Cancelled"}
		case check.RequiresPassing && result.FailedSteps > 0:
			step = ValidationStep{Name: check.Name, Status: StepSkipped, Message: "Skipped due to earlier failures"}
		default:
			step = s.runCheck(ctx, check)
		}
		s.print(step)
		result.record(step)

		if s.failFast && step.Status == StepFailed {
			break
		}
	}
	result.Duration = time.Since(began)

	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *ValidationSuite) runCheck(ctx context.Context, check Check) ValidationStep {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", check.Name)
	}

	began := time.Now()
	res := check.Run(ctx)
	step := ValidationStep{
		Name:    check.Name,
		Status:  res.Status,
		Message: res.Message,
		Error:   res.Error,
		Latency: time.Since(began),
	}
	// A check that never settled counts as failed.
	if _, ok := stepStyles[step.Status]; !ok {
		step.Status = StepFailed
	}
	return step
}

func (r *SuiteResult) record(step ValidationStep) {
	r.Steps = append(r.Steps, step)
	r.TotalSteps++
	switch step.Status {
	case StepPassed:
		r.PassedSteps++
	case StepFailed:
		r.FailedSteps++
		r.Success = false
	case StepWarning:
		r.Warnings++
	}
}

// print overwrites the in-progress line with the final status.
func (s *ValidationSuite) print(step ValidationStep) {
	if !s.showProgress {
		return
	}
	style, ok := stepStyles[step.Status]
	if !ok {
		style = stepStyle{"?", color.New(color.FgWhite)}
	}

	fmt.Fprint(s.output, "\r")
	style.clr.Fprintf(s.output, "  %s %s", style.icon, step.Name)
	if step.Message != "" {
		detailColor.Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Error != nil && (step.Status == StepFailed || step.Status == StepWarning) {
		style.clr.Fprintf(s.output, "    └─ %v\n", step.Error)
	}
}

func (s *ValidationSuite) printSummary(r SuiteResult) {
	clr, verdict := color.New(color.FgGreen, color.Bold), "Passed"
	if !r.Success {
		clr, verdict = color.New(color.FgRed, color.Bold), "Failed"
	}

	fmt.Fprintln(s.output)
	clr.Fprintf(s.output, "━━━ Validation %s ", verdict)
	detailColor.Fprintf(s.output, "(%s)", r.counts())
	clr.Fprintln(s.output, " ━━━")
	fmt.Fprintln(s.output)
}

func (r SuiteResult) counts() string {
	parts := []string{fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps)}
	if r.FailedSteps > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", r.Warnings))
	}
	return strings.Join(parts, ", ")
}

// GetErrors returns the errors of failed steps. Warnings are not included.
func (r SuiteResult) GetErrors() []error {
	var errs []error
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			errs = append(errs, step.Error)
		}
	}
	return errs
}

// GetFirstError returns the error of the first failed step, or nil.
func (r SuiteResult) GetFirstError() error {
	if errs := r.GetErrors(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Summary is a one-line form of the result, for logs.
func (r SuiteResult) Summary() string {
	verdict := "Passed"
	if !r.Success {
		verdict = "Failed"
	}
	return fmt.Sprintf("Validation %s: %s (took %v)", verdict, r.counts(), r.Duration.Round(time.Millisecond))
}
