package core

// Exit codes for the CLI.
// Signal-based exits follow the Unix 128 + signal number convention.
const (
	// ExitCodeSuccess indicates every requested unit succeeded
	ExitCodeSuccess = 0

	// ExitCodeError indicates the command failed before producing a result
	ExitCodeError = 1

	// ExitCodePartialFailure indicates a run completed with failureCount > 0
	ExitCodePartialFailure = 2

	// ExitCodeUsage indicates invalid command-line usage
	ExitCodeUsage = 64

	// ExitCodeSIGINT indicates termination due to SIGINT (Ctrl+C)
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM indicates termination due to SIGTERM
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodePartialFailure:
		return "partial failure"
	case ExitCodeUsage:
		return "usage"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// ExitCodeForCounts maps run counters onto an exit code.
// A run where nothing succeeded is an error, not a partial failure.
func ExitCodeForCounts(successCount, failureCount int) int {
	switch {
	case failureCount == 0:
		return ExitCodeSuccess
	case successCount == 0:
		return ExitCodeError
	default:
		return ExitCodePartialFailure
	}
}
