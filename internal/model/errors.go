package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every ValidationError.
	ErrInvalidInput = errors.New("invalid consumption input")

	// ErrInvalidTariff is matched by every ConfigurationError.
	ErrInvalidTariff = errors.New("invalid tariff configuration")
)

// ValidationError reports a malformed or out-of-range consumption record.
// Day is 1-based; zero means the error is about the sequence as a whole.
type ValidationError struct {
	Day    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Day == 0 {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: day %d: %s: %s", e.Day, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// ConfigurationError reports a tariff that cannot be billed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid tariff: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrInvalidTariff }
