package query

import (
	"time"

	"mercator-hq/chronicle/pkg/history"
)

// ensureNotEmptyString fails when a required scalar is unset.
func ensureNotEmptyString(name, value string) error {
	if value == "" {
		return history.NewInvalidArgumentError(name, name+" is null")
	}
	return nil
}

// ensureTimeSet fails when a required time is the zero value.
func ensureTimeSet(name string, t time.Time) error {
	if t.IsZero() {
		return history.NewInvalidArgumentError(name, name+" is null")
	}
	return nil
}

// ensureValues validates the element list of an "in"-style filter: it must be
// non-nil, non-empty and free of empty strings.
func ensureValues(name string, values []string) error {
	if values == nil {
		return history.NewInvalidArgumentError(name, name+" is null")
	}
	if len(values) == 0 {
		return history.NewInvalidArgumentError(name, name+" is empty")
	}
	for _, v := range values {
		if v == "" {
			return history.NewInvalidArgumentError(name, name+" contains empty string")
		}
	}
	return nil
}

// Strings converts a nullable list, as decoded from JSON request bodies, into
// filter values. A nil element is rejected with "<name> contains null value".
func Strings(name string, values []*string) ([]string, error) {
	if values == nil {
		return nil, history.NewInvalidArgumentError(name, name+" is null")
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			return nil, history.NewInvalidArgumentError(name, name+" contains null value")
		}
		out = append(out, *v)
	}
	if err := ensureValues(name, out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureValues exposes the "in"-filter validation to other packages that
// accept grouping-key filters.
func EnsureValues(name string, values []string) error {
	return ensureValues(name, values)
}
