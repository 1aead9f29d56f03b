package main

import (
	"context"
	"fmt"
	"os"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/export"
	"mercator-hq/chronicle/pkg/history"

	"github.com/spf13/cobra"
)

var importFlags struct {
	kind      string
	batchSize int
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Load historic entities into the store",
	Long: `Load historic entities from a JSON array or newline-delimited JSON file
into the configured store. Entities without a kind get --kind. Use - to read
standard input.

Examples:
  # Seed a SQLite store
  chronicle import history.ndjson --config chronicle.yaml

  # Import batches exported from another instance
  chronicle query batch --all -o json | chronicle import - --kind batch`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFlags.kind, "kind", "", "kind for entities that do not name one")
	importCmd.Flags().IntVar(&importFlags.batchSize, "batch-size", 500, "entities per insert")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var defaultKind history.EntityKind
	if importFlags.kind != "" {
		k, err := history.ParseKind(importFlags.kind)
		if err != nil {
			return err
		}
		defaultKind = k
	}
	if importFlags.batchSize <= 0 {
		return history.NewInvalidArgumentError("batch-size", "must be greater than 0")
	}

	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return cli.NewCommandError("import", err)
		}
		defer f.Close()
		in = f
	}

	entities, err := export.ReadEntities(in, defaultKind)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	w, err := a.writer()
	if err != nil {
		return err
	}

	progress := cli.NewProgress(stderr, "importing")
	for start := 0; start < len(entities); start += importFlags.batchSize {
		end := min(start+importFlags.batchSize, len(entities))
		if err := w.Insert(ctx, entities[start:end]...); err != nil {
			progress.Fail(err)
			return fmt.Errorf("import stopped after %d of %d entities: %w", start, len(entities), err)
		}
		progress.Advance(int64(end - start))
	}
	progress.Done()

	a.logger.Info("import completed", "file", args[0], "entities", len(entities))
	return nil
}
