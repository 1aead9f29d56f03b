package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"mercator-hq/chronicle/pkg/history"
)

// OpenOutput returns a writer for path, or stdout when path is empty or
// "-". Closing the stdout writer is a no-op.
func OpenOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// ParseParams parses repeated key=value flags into named query parameters.
func ParseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimPrefix(strings.TrimSpace(key), ":")
		if !ok || key == "" {
			return nil, history.NewInvalidArgumentError("param",
				fmt.Sprintf("param %q must have the form name=value", pair))
		}
		params[key] = value
	}
	return params, nil
}
