package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// BackendError enhances a secret-memory backend failure with context
func BackendError(backend string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s backend failed during %s", backend, operation),
		Details:    err.Error(),
		Suggestion: Suggest(err),
		Err:        err,
	}
}

// Suggest returns a remediation hint for an OS-level memory error, or ""
// when there is nothing useful to say.
func Suggest(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, syscall.ENOSYS):
		return "memfd_secret is unavailable; it needs Linux 5.14+ booted with secretmem.enable=1 (the POSIX backend is used instead)"
	case errors.Is(err, syscall.ENOMEM), errors.Is(err, syscall.EAGAIN):
		return "Raise the locked-memory limit: 'ulimit -l', or LimitMEMLOCK= for systemd units"
	case errors.Is(err, syscall.EPERM):
		return "The process may not lock memory. Raise RLIMIT_MEMLOCK or grant CAP_IPC_LOCK"
	case errors.Is(err, syscall.EINVAL):
		return "The kernel rejected the request; check the requested size and platform support"
	}

	// Windows reports VirtualLock exhaustion as a working set quota error
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "working set") || strings.Contains(errStr, "quota") {
		return "Increase the process minimum working set (SetProcessWorkingSetSize) before locking more pages"
	}

	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	// Already a user-friendly error
	if _, ok := err.(UserError); ok {
		return err
	}
	if _, ok := err.(ConfigError); ok {
		return err
	}

	if suggestion := Suggest(err); suggestion != "" {
		return UserError{
			Message:    err.Error(),
			Suggestion: suggestion,
			Err:        err,
		}
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
