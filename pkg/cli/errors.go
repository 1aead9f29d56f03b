package cli

import (
	"errors"
	"fmt"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error to the process exit code. Caller mistakes (builder
// misuse, invalid arguments, bad configuration) exit 2; anything else 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		usage   *history.UsageError
		invalid *history.InvalidArgumentError
		cfgErr  *ConfigError
		valErr  config.ValidationError
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &invalid), errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitUsage
	default:
		return ExitFailure
	}
}
