package main

import (
	"context"
	"fmt"
	"strings"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/export"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/retention"

	"github.com/spf13/cobra"
)

var reportFlags struct {
	ids            []string
	definitionKeys []string
	tenants        []string
	withoutTenant  bool
	compact        bool
	sort           string
	count          bool
	first          int
	max            int
	output         string
	file           string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Retention reports",
}

var reportCleanableCmd = &cobra.Command{
	Use:   "cleanable <process-definition|case-definition|decision-definition|batch>",
	Short: "Report finished and cleanable counts per definition or batch type",
	Long: `Report, for every process, case or decision definition or batch type,
how many finished entities it has and how many of them are past their
history time to live at the current time.

Examples:
  # Every process definition, largest backlog first
  chronicle report cleanable process-definition --sort desc

  # Only batch types with something finished, as CSV
  chronicle report cleanable batch --compact -o csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"process-definition", "case-definition", "decision-definition", "batch"},
	RunE:      runCleanableReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportCleanableCmd)

	f := reportCleanableCmd.Flags()
	f.StringSliceVar(&reportFlags.ids, "id", nil, "definition ids, or batch types for a batch report")
	f.StringSliceVar(&reportFlags.definitionKeys, "definition-key", nil, "definition keys (definition reports only)")
	f.StringSliceVar(&reportFlags.tenants, "tenant", nil, "tenant ids (definition reports only)")
	f.BoolVar(&reportFlags.withoutTenant, "without-tenant", false, "only definitions without a tenant")
	f.BoolVar(&reportFlags.compact, "compact", false, "omit rows with nothing finished")
	f.StringVar(&reportFlags.sort, "sort", "", "sort by finished count: asc or desc")
	f.BoolVar(&reportFlags.count, "count", false, "print the number of rows only")
	f.IntVar(&reportFlags.first, "first", 0, "index of the first row")
	f.IntVar(&reportFlags.max, "max", 0, "maximum number of rows (default: query.default_page_size)")
	f.StringVarP(&reportFlags.output, "output", "o", "table", "output format: table, json, csv")
	f.StringVarP(&reportFlags.file, "file", "f", "", "output file (default: stdout)")
}

func buildCleanableReport(cmd *cobra.Command, kind retention.PolicyKind) (*retention.CleanableReport, error) {
	r := retention.NewCleanableReport(kind)
	changed := cmd.Flags().Changed

	if changed("id") {
		r.GroupingKeyIn(reportFlags.ids...)
	}
	if changed("definition-key") {
		r.DefinitionKeyIn(reportFlags.definitionKeys...)
	}
	if changed("tenant") {
		r.TenantIDIn(reportFlags.tenants...)
	}
	if reportFlags.withoutTenant {
		r.WithoutTenantID()
	}
	if reportFlags.compact {
		r.Compact()
	}
	if changed("sort") {
		r.OrderByFinished()
		switch strings.ToLower(reportFlags.sort) {
		case "asc":
			r.Asc()
		case "desc":
			r.Desc()
		default:
			return nil, history.NewInvalidArgumentError("sort", fmt.Sprintf("unknown direction %q (valid: asc, desc)", reportFlags.sort))
		}
	}
	return r, r.Err()
}

func runCleanableReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind, err := retention.ParsePolicyKind(args[0])
	if err != nil {
		return err
	}
	r, err := buildCleanableReport(cmd, kind)
	if err != nil {
		return err
	}
	exp, err := export.New(export.Format(reportFlags.output))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	out, err := cli.OpenOutput(reportFlags.file, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()

	if reportFlags.count {
		n, err := a.aggregator.Count(ctx, r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, n)
		return err
	}

	rows, err := a.aggregator.Report(ctx, r, history.Page{
		FirstResult: reportFlags.first,
		MaxResults:  a.pageSize(reportFlags.max),
	})
	if err != nil {
		return err
	}
	if err := exp.ExportRows(ctx, rows, out); err != nil {
		return err
	}
	return out.Close()
}
