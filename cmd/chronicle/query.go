package main

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	"mercator-hq/chronicle/pkg/cli"
	"mercator-hq/chronicle/pkg/export"
	"mercator-hq/chronicle/pkg/history"
	"mercator-hq/chronicle/pkg/history/query"

	"github.com/spf13/cobra"
)

// runnable is the part of every typed query surface the command needs.
type runnable interface {
	Err() error
	Count(ctx context.Context) (int64, error)
	SingleResult(ctx context.Context) (*history.HistoricEntity, error)
	Stream(ctx context.Context, page history.Page) iter.Seq2[*history.HistoricEntity, error]
}

type queryBuilder func(cmd *cobra.Command, exec *query.Executor) (runnable, error)

var queryFlags struct {
	// Output and paging
	output  string
	file    string
	first   int
	max     int
	all     bool
	count   bool
	single  bool
	orderBy []string

	// Shared filters
	ids            []string
	definitionIDs  []string
	definitionKeys []string
	keysNotIn      []string
	tenants        []string
	withoutTenant  bool
	definitionID   string
	definitionKey  string
	definitionName string
	businessKey    string
	businessLike   string
	state          string
	instanceID     string
	rootOnly       bool
	after, before  string
	endAfter       string
	endBefore      string

	// Finished state
	finished   bool
	unfinished bool

	// Kind specific
	superInstance string
	rootDecision  string
	batchID       string
	batchType     string
	jobID         string
	jobType       string
	exception     string
	activities    []string
	priorityMin   int64
	priorityMax   int64
	logState      string
	userID        string
	groupID       string
	operationType string
	cause         string
	rootCause     string
	incidentType  string
	incidentState string
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query historic entities",
	Long: `Query historic entities with filters, ordering and paging.

Each entity kind has its own subcommand and filters. Ordering is given with
repeated --order-by flags of the form key or key:desc; later keys break ties
of earlier ones, and the entity id always breaks the remaining ties.

Examples:
  # Finished invoice instances, newest first, as JSON
  chronicle query process-instance --definition-key invoice --finished --order-by end-time:desc -o json

  # Count failed job logs of a batch
  chronicle query job-log --batch-id b-42 --log-state failure --count

  # Diagnostic raw query against the SQLite store
  chronicle query raw --kind batch --sql "SELECT * FROM historic_entities WHERE grouping_key = :type" --param type=migration`,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.PersistentFlags().StringVarP(&queryFlags.output, "output", "o", "table", "output format: table, json, csv")
	queryCmd.PersistentFlags().StringVarP(&queryFlags.file, "file", "f", "", "output file (default: stdout)")
	queryCmd.PersistentFlags().IntVar(&queryFlags.first, "first", 0, "index of the first result")
	queryCmd.PersistentFlags().IntVar(&queryFlags.max, "max", 0, "maximum number of results (default: query.default_page_size)")
	queryCmd.PersistentFlags().BoolVar(&queryFlags.all, "all", false, "return every result")

	queryCmd.AddCommand(
		kindCommand("process-instance", "Query historic process instances", buildProcessInstance, processInstanceFlags),
		kindCommand("case-instance", "Query historic case instances", buildCaseInstance, caseInstanceFlags),
		kindCommand("decision-instance", "Query historic decision evaluations", buildDecisionInstance, decisionInstanceFlags),
		kindCommand("batch", "Query historic batch operations", buildBatch, batchFlags),
		kindCommand("job-log", "Query historic job log entries", buildJobLog, jobLogFlags),
		kindCommand("identity-link-log", "Query historic identity link log entries", buildIdentityLinkLog, identityLinkLogFlags),
		kindCommand("incident", "Query historic incidents", buildIncident, incidentFlags),
	)
}

func kindCommand(use, short string, build queryBuilder, flags func(cmd *cobra.Command)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, build)
		},
	}
	cmd.Flags().BoolVar(&queryFlags.count, "count", false, "print the number of matches only")
	cmd.Flags().BoolVar(&queryFlags.single, "single", false, "expect at most one match")
	cmd.Flags().StringArrayVar(&queryFlags.orderBy, "order-by", nil, "ordering key, optionally suffixed with :asc or :desc (repeatable)")
	flags(cmd)
	return cmd
}

func runQuery(cmd *cobra.Command, build queryBuilder) error {
	ctx := cmd.Context()
	if queryFlags.count && queryFlags.single {
		return history.NewInvalidArgumentError("count", "--count and --single are mutually exclusive")
	}
	exp, err := export.New(export.Format(queryFlags.output))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	q, err := build(cmd, a.executor)
	if err != nil {
		return err
	}
	if err := q.Err(); err != nil {
		return err
	}

	out, err := cli.OpenOutput(queryFlags.file, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()

	switch {
	case queryFlags.count:
		n, err := q.Count(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, n)
		return err

	case queryFlags.single:
		entity, err := q.SingleResult(ctx)
		if err != nil {
			return err
		}
		var entities []*history.HistoricEntity
		if entity != nil {
			entities = append(entities, entity)
		}
		return exp.ExportEntities(ctx, entities, out)

	default:
		page := history.Page{FirstResult: queryFlags.first, MaxResults: a.pageSize(queryFlags.max)}
		if queryFlags.all {
			page.MaxResults = history.MaxResults
		}
		if err := exp.ExportStream(ctx, q.Stream(ctx, page), out); err != nil {
			return err
		}
		return out.Close()
	}
}

// sortKeys maps --order-by names to a surface's ordering methods.
type sortKeys[Q any] map[string]func(*Q) *Q

// applyOrdering commits every --order-by value to q in flag order.
func applyOrdering[Q any](q *Q, keys sortKeys[Q], asc, desc func(*Q) *Q) error {
	for _, value := range queryFlags.orderBy {
		name, dir, _ := strings.Cut(value, ":")
		orderBy, ok := keys[name]
		if !ok {
			return history.NewInvalidArgumentError("order-by",
				fmt.Sprintf("unknown ordering key %q (valid: %s)", name, strings.Join(slices.Sorted(maps.Keys(keys)), ", ")))
		}
		orderBy(q)
		switch strings.ToLower(dir) {
		case "", "asc":
			asc(q)
		case "desc":
			desc(q)
		default:
			return history.NewInvalidArgumentError("order-by", fmt.Sprintf("unknown direction %q in %q", dir, value))
		}
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps and plain dates (UTC midnight).
func parseTime(flag, value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	return time.Time{}, history.NewInvalidArgumentError(flag,
		fmt.Sprintf("cannot parse %q as RFC 3339 timestamp or YYYY-MM-DD date", value))
}

// timeFilter applies fn when flag was set.
func timeFilter(cmd *cobra.Command, flag, value string, fn func(time.Time)) error {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	t, err := parseTime(flag, value)
	if err != nil {
		return err
	}
	fn(t)
	return nil
}

func tenantFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&queryFlags.tenants, "tenant", nil, "tenant ids (repeatable or comma separated)")
	cmd.Flags().BoolVar(&queryFlags.withoutTenant, "without-tenant", false, "only entities without a tenant")
}

func processInstanceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&queryFlags.ids, "id", nil, "process instance ids")
	f.StringSliceVar(&queryFlags.definitionIDs, "definition-id", nil, "process definition ids")
	f.StringSliceVar(&queryFlags.definitionKeys, "definition-key", nil, "process definition keys")
	f.StringSliceVar(&queryFlags.keysNotIn, "definition-key-not-in", nil, "excluded process definition keys")
	f.StringVar(&queryFlags.definitionName, "definition-name", "", "process definition name")
	f.StringVar(&queryFlags.businessKey, "business-key", "", "business key")
	f.StringVar(&queryFlags.businessLike, "business-key-like", "", "business key LIKE pattern (% and _ wildcards)")
	f.StringVar(&queryFlags.state, "state", "", "state: active, suspended, completed, externally-terminated, internally-terminated")
	f.BoolVar(&queryFlags.finished, "finished", false, "only finished instances")
	f.BoolVar(&queryFlags.unfinished, "unfinished", false, "only running instances")
	f.BoolVar(&queryFlags.rootOnly, "root-only", false, "only instances without a parent instance")
	f.StringVar(&queryFlags.superInstance, "super-instance", "", "parent process instance id")
	f.StringVar(&queryFlags.after, "started-after", "", "started at or after (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&queryFlags.before, "started-before", "", "started at or before")
	f.StringVar(&queryFlags.endAfter, "finished-after", "", "finished at or after")
	f.StringVar(&queryFlags.endBefore, "finished-before", "", "finished at or before")
	tenantFlags(cmd)
}

func buildProcessInstance(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewProcessInstanceQuery(exec)
	changed := cmd.Flags().Changed

	if changed("id") {
		q.ProcessInstanceIDIn(queryFlags.ids...)
	}
	if changed("definition-id") {
		q.ProcessDefinitionIDIn(queryFlags.definitionIDs...)
	}
	if changed("definition-key") {
		q.ProcessDefinitionKeyIn(queryFlags.definitionKeys...)
	}
	if changed("definition-key-not-in") {
		q.ProcessDefinitionKeyNotIn(queryFlags.keysNotIn...)
	}
	if changed("definition-name") {
		q.ProcessDefinitionName(queryFlags.definitionName)
	}
	if changed("business-key") {
		q.BusinessKey(queryFlags.businessKey)
	}
	if changed("business-key-like") {
		q.BusinessKeyLike(queryFlags.businessLike)
	}
	if changed("state") {
		switch strings.ToUpper(strings.ReplaceAll(queryFlags.state, "-", "_")) {
		case query.StateActive:
			q.Active()
		case query.StateSuspended:
			q.Suspended()
		case query.StateCompleted:
			q.Completed()
		case query.StateExternallyTerminated:
			q.ExternallyTerminated()
		case query.StateInternallyTerminated:
			q.InternallyTerminated()
		default:
			return nil, history.NewInvalidArgumentError("state", fmt.Sprintf("unknown process instance state %q", queryFlags.state))
		}
	}
	if queryFlags.finished {
		q.Finished()
	}
	if queryFlags.unfinished {
		q.Unfinished()
	}
	if queryFlags.rootOnly {
		q.RootProcessInstances()
	}
	if changed("super-instance") {
		q.SuperProcessInstanceID(queryFlags.superInstance)
	}
	for _, tf := range []struct {
		flag, value string
		fn          func(time.Time) *query.ProcessInstanceQuery
	}{
		{"started-after", queryFlags.after, q.StartedAfter},
		{"started-before", queryFlags.before, q.StartedBefore},
		{"finished-after", queryFlags.endAfter, q.FinishedAfter},
		{"finished-before", queryFlags.endBefore, q.FinishedBefore},
	} {
		if err := timeFilter(cmd, tf.flag, tf.value, func(t time.Time) { tf.fn(t) }); err != nil {
			return nil, err
		}
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}
	if queryFlags.withoutTenant {
		q.WithoutTenantID()
	}

	err := applyOrdering(q, sortKeys[query.ProcessInstanceQuery]{
		"id":                 (*query.ProcessInstanceQuery).OrderByProcessInstanceID,
		"definition-id":      (*query.ProcessInstanceQuery).OrderByProcessDefinitionID,
		"definition-key":     (*query.ProcessInstanceQuery).OrderByProcessDefinitionKey,
		"definition-name":    (*query.ProcessInstanceQuery).OrderByProcessDefinitionName,
		"definition-version": (*query.ProcessInstanceQuery).OrderByProcessDefinitionVersion,
		"business-key":       (*query.ProcessInstanceQuery).OrderByBusinessKey,
		"start-time":         (*query.ProcessInstanceQuery).OrderByStartTime,
		"end-time":           (*query.ProcessInstanceQuery).OrderByEndTime,
		"tenant-id":          (*query.ProcessInstanceQuery).OrderByTenantID,
	}, (*query.ProcessInstanceQuery).Asc, (*query.ProcessInstanceQuery).Desc)
	return q, err
}

func caseInstanceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&queryFlags.ids, "id", nil, "case instance ids")
	f.StringVar(&queryFlags.definitionID, "definition-id", "", "case definition id")
	f.StringVar(&queryFlags.definitionKey, "definition-key", "", "case definition key")
	f.StringSliceVar(&queryFlags.keysNotIn, "definition-key-not-in", nil, "excluded case definition keys")
	f.StringVar(&queryFlags.businessKey, "business-key", "", "business key")
	f.StringVar(&queryFlags.businessLike, "business-key-like", "", "business key LIKE pattern")
	f.BoolVar(&queryFlags.finished, "closed", false, "only closed case instances")
	f.BoolVar(&queryFlags.unfinished, "not-closed", false, "only open case instances")
	f.StringVar(&queryFlags.after, "created-after", "", "created at or after")
	f.StringVar(&queryFlags.before, "created-before", "", "created at or before")
	f.StringVar(&queryFlags.endAfter, "closed-after", "", "closed at or after")
	f.StringVar(&queryFlags.endBefore, "closed-before", "", "closed at or before")
	tenantFlags(cmd)
}

func buildCaseInstance(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewCaseInstanceQuery(exec)
	changed := cmd.Flags().Changed

	if changed("id") {
		q.CaseInstanceIDIn(queryFlags.ids...)
	}
	if changed("definition-id") {
		q.CaseDefinitionID(queryFlags.definitionID)
	}
	if changed("definition-key") {
		q.CaseDefinitionKey(queryFlags.definitionKey)
	}
	if changed("definition-key-not-in") {
		q.CaseDefinitionKeyNotIn(queryFlags.keysNotIn...)
	}
	if changed("business-key") {
		q.BusinessKey(queryFlags.businessKey)
	}
	if changed("business-key-like") {
		q.BusinessKeyLike(queryFlags.businessLike)
	}
	if queryFlags.finished {
		q.Closed()
	}
	if queryFlags.unfinished {
		q.NotClosed()
	}
	for _, tf := range []struct {
		flag, value string
		fn          func(time.Time) *query.CaseInstanceQuery
	}{
		{"created-after", queryFlags.after, q.CreatedAfter},
		{"created-before", queryFlags.before, q.CreatedBefore},
		{"closed-after", queryFlags.endAfter, q.ClosedAfter},
		{"closed-before", queryFlags.endBefore, q.ClosedBefore},
	} {
		if err := timeFilter(cmd, tf.flag, tf.value, func(t time.Time) { tf.fn(t) }); err != nil {
			return nil, err
		}
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}
	if queryFlags.withoutTenant {
		q.WithoutTenantID()
	}

	err := applyOrdering(q, sortKeys[query.CaseInstanceQuery]{
		"id":            (*query.CaseInstanceQuery).OrderByCaseInstanceID,
		"definition-id": (*query.CaseInstanceQuery).OrderByCaseDefinitionID,
		"create-time":   (*query.CaseInstanceQuery).OrderByCreateTime,
		"close-time":    (*query.CaseInstanceQuery).OrderByCloseTime,
		"tenant-id":     (*query.CaseInstanceQuery).OrderByTenantID,
	}, (*query.CaseInstanceQuery).Asc, (*query.CaseInstanceQuery).Desc)
	return q, err
}

func decisionInstanceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&queryFlags.ids, "id", nil, "decision instance ids")
	f.StringSliceVar(&queryFlags.definitionIDs, "definition-id", nil, "decision definition ids")
	f.StringSliceVar(&queryFlags.definitionKeys, "definition-key", nil, "decision definition keys")
	f.StringVar(&queryFlags.instanceID, "process-instance", "", "process instance that evaluated the decision")
	f.StringVar(&queryFlags.rootDecision, "root-decision-instance", "", "root decision instance id")
	f.BoolVar(&queryFlags.rootOnly, "root-only", false, "only evaluations not triggered by another decision")
	f.StringVar(&queryFlags.after, "evaluated-after", "", "evaluated at or after")
	f.StringVar(&queryFlags.before, "evaluated-before", "", "evaluated at or before")
	tenantFlags(cmd)
}

func buildDecisionInstance(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewDecisionInstanceQuery(exec)
	changed := cmd.Flags().Changed

	if changed("id") {
		q.DecisionInstanceIDIn(queryFlags.ids...)
	}
	if changed("definition-id") {
		q.DecisionDefinitionIDIn(queryFlags.definitionIDs...)
	}
	if changed("definition-key") {
		q.DecisionDefinitionKeyIn(queryFlags.definitionKeys...)
	}
	if changed("process-instance") {
		q.ProcessInstanceID(queryFlags.instanceID)
	}
	if changed("root-decision-instance") {
		q.RootDecisionInstanceID(queryFlags.rootDecision)
	}
	if queryFlags.rootOnly {
		q.RootDecisionInstancesOnly()
	}
	if err := timeFilter(cmd, "evaluated-after", queryFlags.after, func(t time.Time) { q.EvaluatedAfter(t) }); err != nil {
		return nil, err
	}
	if err := timeFilter(cmd, "evaluated-before", queryFlags.before, func(t time.Time) { q.EvaluatedBefore(t) }); err != nil {
		return nil, err
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}
	if queryFlags.withoutTenant {
		q.WithoutTenantID()
	}

	err := applyOrdering(q, sortKeys[query.DecisionInstanceQuery]{
		"evaluation-time": (*query.DecisionInstanceQuery).OrderByEvaluationTime,
		"tenant-id":       (*query.DecisionInstanceQuery).OrderByTenantID,
	}, (*query.DecisionInstanceQuery).Asc, (*query.DecisionInstanceQuery).Desc)
	return q, err
}

func batchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&queryFlags.batchID, "id", "", "batch id")
	f.StringVar(&queryFlags.batchType, "type", "", "batch type, e.g. instance-migration")
	f.BoolVar(&queryFlags.finished, "completed", false, "only completed batches")
	f.BoolVar(&queryFlags.unfinished, "running", false, "only running batches")
	f.StringVar(&queryFlags.after, "started-after", "", "started at or after")
	f.StringVar(&queryFlags.endBefore, "ended-before", "", "ended at or before")
	tenantFlags(cmd)
}

func buildBatch(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewBatchQuery(exec)
	changed := cmd.Flags().Changed

	if changed("id") {
		q.BatchID(queryFlags.batchID)
	}
	if changed("type") {
		q.Type(queryFlags.batchType)
	}
	if queryFlags.finished {
		q.Completed(true)
	}
	if queryFlags.unfinished {
		q.Completed(false)
	}
	if err := timeFilter(cmd, "started-after", queryFlags.after, func(t time.Time) { q.StartedAfter(t) }); err != nil {
		return nil, err
	}
	if err := timeFilter(cmd, "ended-before", queryFlags.endBefore, func(t time.Time) { q.EndedBefore(t) }); err != nil {
		return nil, err
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}
	if queryFlags.withoutTenant {
		q.WithoutTenantID()
	}

	err := applyOrdering(q, sortKeys[query.BatchQuery]{
		"id":         (*query.BatchQuery).OrderByID,
		"start-time": (*query.BatchQuery).OrderByStartTime,
		"end-time":   (*query.BatchQuery).OrderByEndTime,
		"tenant-id":  (*query.BatchQuery).OrderByTenantID,
	}, (*query.BatchQuery).Asc, (*query.BatchQuery).Desc)
	return q, err
}

func jobLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&queryFlags.batchID, "batch-id", "", "batch the job belongs to")
	f.StringVar(&queryFlags.jobID, "job-id", "", "job id")
	f.StringVar(&queryFlags.jobType, "job-type", "", "job type")
	f.StringVar(&queryFlags.exception, "exception-message", "", "exact job exception message")
	f.StringSliceVar(&queryFlags.activities, "activity", nil, "activity ids")
	f.StringVar(&queryFlags.instanceID, "process-instance", "", "process instance id")
	f.StringVar(&queryFlags.definitionID, "definition-id", "", "process definition id")
	f.StringVar(&queryFlags.definitionKey, "definition-key", "", "process definition key")
	f.Int64Var(&queryFlags.priorityMin, "priority-min", 0, "minimum job priority")
	f.Int64Var(&queryFlags.priorityMax, "priority-max", 0, "maximum job priority")
	f.StringVar(&queryFlags.logState, "log-state", "", "log state: creation, failure, success, deletion")
	tenantFlags(cmd)
}

func buildJobLog(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewJobLogQuery(exec)
	changed := cmd.Flags().Changed

	if changed("batch-id") {
		q.BatchID(queryFlags.batchID)
	}
	if changed("job-id") {
		q.JobID(queryFlags.jobID)
	}
	if changed("job-type") {
		q.JobType(queryFlags.jobType)
	}
	if changed("exception-message") {
		q.JobExceptionMessage(queryFlags.exception)
	}
	if changed("activity") {
		q.ActivityIDIn(queryFlags.activities...)
	}
	if changed("process-instance") {
		q.ProcessInstanceID(queryFlags.instanceID)
	}
	if changed("definition-id") {
		q.ProcessDefinitionID(queryFlags.definitionID)
	}
	if changed("definition-key") {
		q.ProcessDefinitionKey(queryFlags.definitionKey)
	}
	if changed("priority-min") {
		q.JobPriorityHigherThanOrEquals(queryFlags.priorityMin)
	}
	if changed("priority-max") {
		q.JobPriorityLowerThanOrEquals(queryFlags.priorityMax)
	}
	if changed("log-state") {
		switch strings.ToLower(queryFlags.logState) {
		case "creation":
			q.CreationLog()
		case "failure":
			q.FailureLog()
		case "success":
			q.SuccessLog()
		case "deletion":
			q.DeletionLog()
		default:
			return nil, history.NewInvalidArgumentError("log-state", fmt.Sprintf("unknown job log state %q", queryFlags.logState))
		}
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}
	if queryFlags.withoutTenant {
		q.WithoutTenantID()
	}

	err := applyOrdering(q, sortKeys[query.JobLogQuery]{
		"timestamp":     (*query.JobLogQuery).OrderByTimestamp,
		"job-id":        (*query.JobLogQuery).OrderByJobID,
		"priority":      (*query.JobLogQuery).OrderByJobPriority,
		"definition-id": (*query.JobLogQuery).OrderByProcessDefinitionID,
		"tenant-id":     (*query.JobLogQuery).OrderByTenantID,
	}, (*query.JobLogQuery).Asc, (*query.JobLogQuery).Desc)
	return q, err
}

func identityLinkLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&queryFlags.userID, "user", "", "user id")
	f.StringVar(&queryFlags.groupID, "group", "", "group id")
	f.StringVar(&queryFlags.operationType, "operation-type", "", "operation type, e.g. add or delete")
	f.StringVar(&queryFlags.definitionID, "definition-id", "", "process definition id")
	f.StringVar(&queryFlags.definitionKey, "definition-key", "", "process definition key")
	f.StringSliceVar(&queryFlags.tenants, "tenant", nil, "tenant ids")
}

func buildIdentityLinkLog(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewIdentityLinkLogQuery(exec)
	changed := cmd.Flags().Changed

	if changed("user") {
		q.UserID(queryFlags.userID)
	}
	if changed("group") {
		q.GroupID(queryFlags.groupID)
	}
	if changed("operation-type") {
		q.OperationType(queryFlags.operationType)
	}
	if changed("definition-id") {
		q.ProcessDefinitionID(queryFlags.definitionID)
	}
	if changed("definition-key") {
		q.ProcessDefinitionKey(queryFlags.definitionKey)
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}

	err := applyOrdering(q, sortKeys[query.IdentityLinkLogQuery]{
		"time":           (*query.IdentityLinkLogQuery).OrderByTime,
		"user-id":        (*query.IdentityLinkLogQuery).OrderByUserID,
		"group-id":       (*query.IdentityLinkLogQuery).OrderByGroupID,
		"operation-type": (*query.IdentityLinkLogQuery).OrderByOperationType,
		"tenant-id":      (*query.IdentityLinkLogQuery).OrderByTenantID,
	}, (*query.IdentityLinkLogQuery).Asc, (*query.IdentityLinkLogQuery).Desc)
	return q, err
}

func incidentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&queryFlags.batchID, "id", "", "incident id")
	f.StringVar(&queryFlags.incidentType, "type", "", "incident type, e.g. failedJob")
	f.StringVar(&queryFlags.cause, "cause", "", "cause incident id")
	f.StringVar(&queryFlags.rootCause, "root-cause", "", "root cause incident id")
	f.StringVar(&queryFlags.instanceID, "process-instance", "", "process instance id")
	f.StringVar(&queryFlags.definitionID, "definition-id", "", "process definition id")
	f.StringSliceVar(&queryFlags.definitionKeys, "definition-key", nil, "process definition keys")
	f.StringVar(&queryFlags.incidentState, "incident-state", "", "incident state: open, resolved, deleted")
	f.StringSliceVar(&queryFlags.tenants, "tenant", nil, "tenant ids")
}

func buildIncident(cmd *cobra.Command, exec *query.Executor) (runnable, error) {
	q := query.NewIncidentQuery(exec)
	changed := cmd.Flags().Changed

	if changed("id") {
		q.IncidentID(queryFlags.batchID)
	}
	if changed("type") {
		q.IncidentType(queryFlags.incidentType)
	}
	if changed("cause") {
		q.CauseIncidentID(queryFlags.cause)
	}
	if changed("root-cause") {
		q.RootCauseIncidentID(queryFlags.rootCause)
	}
	if changed("process-instance") {
		q.ProcessInstanceID(queryFlags.instanceID)
	}
	if changed("definition-id") {
		q.ProcessDefinitionID(queryFlags.definitionID)
	}
	if changed("definition-key") {
		q.ProcessDefinitionKeyIn(queryFlags.definitionKeys...)
	}
	if changed("incident-state") {
		switch strings.ToLower(queryFlags.incidentState) {
		case "open":
			q.Open()
		case "resolved":
			q.Resolved()
		case "deleted":
			q.Deleted()
		default:
			return nil, history.NewInvalidArgumentError("incident-state", fmt.Sprintf("unknown incident state %q", queryFlags.incidentState))
		}
	}
	if changed("tenant") {
		q.TenantIDIn(queryFlags.tenants...)
	}

	err := applyOrdering(q, sortKeys[query.IncidentQuery]{
		"id":          (*query.IncidentQuery).OrderByIncidentID,
		"create-time": (*query.IncidentQuery).OrderByCreateTime,
		"end-time":    (*query.IncidentQuery).OrderByEndTime,
		"type":        (*query.IncidentQuery).OrderByIncidentType,
		"tenant-id":   (*query.IncidentQuery).OrderByTenantID,
	}, (*query.IncidentQuery).Asc, (*query.IncidentQuery).Desc)
	return q, err
}

var rawFlags struct {
	kind   string
	sql    string
	params []string
}

var queryRawCmd = &cobra.Command{
	Use:   "raw",
	Short: "Run a store-specific query",
	Long: `Run a query in the store's native language and map the rows to
historic entities of --kind. Parameters are bound by name with --param
name=value and referenced as :name in the query text. Only the SQLite
backend accepts raw queries.`,
	Args: cobra.NoArgs,
	RunE: runRawQuery,
}

func init() {
	queryCmd.AddCommand(queryRawCmd)

	queryRawCmd.Flags().StringVar(&rawFlags.kind, "kind", string(history.KindProcessInstance), "entity kind of the result rows")
	queryRawCmd.Flags().StringVar(&rawFlags.sql, "sql", "", "query text (required)")
	queryRawCmd.Flags().StringArrayVar(&rawFlags.params, "param", nil, "named parameter as name=value (repeatable)")
	_ = queryRawCmd.MarkFlagRequired("sql")
}

func runRawQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind, err := history.ParseKind(rawFlags.kind)
	if err != nil {
		return err
	}
	params, err := cli.ParseParams(rawFlags.params)
	if err != nil {
		return err
	}
	exp, err := export.New(export.Format(queryFlags.output))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	page := history.Page{FirstResult: queryFlags.first, MaxResults: a.pageSize(queryFlags.max)}
	if queryFlags.all {
		page.MaxResults = history.MaxResults
	}
	entities, err := a.executor.RawQuery(ctx, kind, rawFlags.sql, params, page)
	if err != nil {
		return err
	}

	out, err := cli.OpenOutput(queryFlags.file, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer out.Close()
	if err := exp.ExportEntities(ctx, entities, out); err != nil {
		return err
	}
	return out.Close()
}
