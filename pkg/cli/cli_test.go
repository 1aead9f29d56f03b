package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/chronicle/pkg/config"
	"mercator-hq/chronicle/pkg/history"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", history.NewUsageError("Invalid query usage: cannot set endOr() before or()"), ExitUsage},
		{"wrapped invalid argument", fmt.Errorf("query: %w", history.NewInvalidArgumentError("maxResults", "negative")), ExitUsage},
		{"config", NewConfigError("storage.backend", "unknown"), ExitUsage},
		{"validation", config.ValidationError{Errors: []config.FieldError{{Field: "x", Message: "y"}}}, ExitUsage},
		{"execution", history.NewExecutionError("sqlite", "query", errors.New("disk I/O error")), ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := history.NewUsageError("bad")
	err := NewCommandError("query", inner)
	if !errors.Is(err, inner) {
		t.Error("CommandError should unwrap to its cause")
	}
	if ExitCode(err) != ExitUsage {
		t.Error("wrapped usage error should exit 2")
	}
}

func TestParseParams(t *testing.T) {
	params, err := ParseParams([]string{"state=COMPLETED", ":tenant=acme", "expr=a=b"})
	if err != nil {
		t.Fatalf("ParseParams() = %v", err)
	}
	if params["state"] != "COMPLETED" || params["tenant"] != "acme" || params["expr"] != "a=b" {
		t.Errorf("unexpected params %v", params)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := ParseParams([]string{bad}); err == nil {
			t.Errorf("ParseParams(%q) should fail", bad)
		}
	}
}

func TestOpenOutput(t *testing.T) {
	var stdout bytes.Buffer
	w, err := OpenOutput("", &stdout)
	if err != nil {
		t.Fatalf("OpenOutput() = %v", err)
	}
	fmt.Fprint(w, "hello")
	w.Close()
	if stdout.String() != "hello" {
		t.Errorf("stdout = %q", stdout.String())
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	w, err = OpenOutput(path, &stdout)
	if err != nil {
		t.Fatalf("OpenOutput(file) = %v", err)
	}
	fmt.Fprint(w, "a,b")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a,b" {
		t.Errorf("file = %q", data)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "importing")
	p.Begin(4)
	p.Advance(2)
	p.Done()

	out := buf.String()
	if !strings.Contains(out, "importing 2/4 (50.0%, 1 batches)") || !strings.Contains(out, "4/4 (100.0%") {
		t.Errorf("unexpected progress output %q", out)
	}
}

func TestSetupSignalHandler(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	cancel()
	<-ctx.Done()
}
