package closeops

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/policy"
	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// PolicyEvaluator checks close reports against close-control policies.
// *policy.Engine satisfies it.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input *policy.PolicyInput) (*policy.PolicyResult, error)
}

// ProgressResult is the get_close_progress output.
type ProgressResult struct {
	*engine.Progress
	PolicyViolations []policy.PolicyViolation `json:"policy_violations,omitempty"`
}

// BlockersResult is the identify_blockers output.
type BlockersResult struct {
	*engine.BlockerReport
	PolicyViolations []policy.PolicyViolation `json:"policy_violations,omitempty"`
}

// Service runs the close operations against a store.
type Service struct {
	catalog     *engine.Catalog
	builder     *engine.Builder
	tracker     *engine.StatusTracker
	store       engine.QueryExecutor
	policies    PolicyEvaluator
	tel         *telemetry.Telemetry
	now         engine.Clock
	newID       engine.IDGenerator
	environment string
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog replaces the built-in task catalog.
func WithCatalog(catalog *engine.Catalog) Option {
	return func(s *Service) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// WithClock sets the time source used for timestamps and lateness.
func WithClock(now engine.Clock) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets how task identifiers are allocated.
func WithIDGenerator(g engine.IDGenerator) Option {
	return func(s *Service) {
		s.newID = g
	}
}

// WithPolicyEvaluator enables close-control checks on progress and blocker reports.
func WithPolicyEvaluator(p PolicyEvaluator) Option {
	return func(s *Service) {
		s.policies = p
	}
}

// WithTelemetry sets the telemetry used for logs, spans, metrics and events.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Service) {
		if tel != nil {
			s.tel = tel
		}
	}
}

// WithEnvironment labels policy evaluations with a deployment environment.
func WithEnvironment(env string) Option {
	return func(s *Service) {
		s.environment = env
	}
}

// NewService creates a service over store. A nil store limits the service to
// the catalog-only operations.
func NewService(store engine.QueryExecutor, opts ...Option) *Service {
	s := &Service{
		catalog: engine.DefaultCatalog(),
		store:   store,
		tel:     telemetry.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	builderOpts := []engine.BuilderOption{engine.WithClock(s.now)}
	if s.newID != nil {
		builderOpts = append(builderOpts, engine.WithIDGenerator(s.newID))
	}
	s.builder = engine.NewBuilder(s.catalog, builderOpts...)
	s.tracker = engine.NewStatusTracker(s.now)

	return s
}

// Catalog returns the task catalog the service schedules from.
func (s *Service) Catalog() *engine.Catalog {
	return s.catalog
}

// start opens an instrumented operation scope.
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) *telemetry.InstrumentedContext {
	return telemetry.StartOperation(s.tel.WithContext(ctx), op, attrs...)
}

// finish classifies err, records it and closes the scope.
func (s *Service) finish(ic *telemetry.InstrumentedContext, op string, errp *error) {
	err := *errp
	if err != nil {
		var ce *engine.CloseError
		if !errors.As(err, &ce) {
			ce = engine.NewInternalError("unexpected failure", err)
		}
		if ce.Operation == "" {
			ce.WithOperation(op)
		}
		*errp = ce

		s.tel.Metrics.RecordError(string(ce.Class), ce.Code)
		_ = s.tel.Events.PublishOperationFailed(op, string(ce.Class), ce.Message)
		ic.Logger.WithError(ce).Warn("operation failed")
	} else {
		ic.Logger.Debugf("operation completed in %s", ic.Timer.Duration())
	}
	ic.End(*errp)
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return engine.NewInternalError("no store configured", nil)
	}
	return nil
}

// InitializeCloseTasks builds the close instance for a period and persists it
// when the store can record instances.
func (s *Service) InitializeCloseTasks(ctx context.Context, params InitializeParams) (_ *engine.CloseInstance, err error) {
	ic := s.start(ctx, OpInitializeCloseTasks, telemetry.AttrPeriod.String(params.Period))
	defer s.finish(ic, OpInitializeCloseTasks, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	instance, err := s.builder.Initialize(params.Period, params.PeriodEndDate, closeDaysOrDefault(params.CloseDays), params.Assignees)
	if err != nil {
		return nil, err
	}

	if recorder, ok := s.store.(engine.InstanceRecorder); ok {
		if err := recorder.RecordCloseInstance(ic.Ctx, instance); err != nil {
			return nil, err
		}
	}

	ic.Span.SetAttributes(telemetry.AttrTaskCount.Int(instance.Summary.TotalTasks))
	s.tel.Metrics.RecordTasksInitialized(instance.Summary.TasksByCategory)
	_ = s.tel.Events.PublishCloseInitialized(instance.Period, instance.Summary.TotalTasks, instance.CloseDays)
	ic.Logger.WithPeriod(instance.Period).Infof("initialized %d close tasks over %d days",
		instance.Summary.TotalTasks, instance.CloseDays)

	return instance, nil
}

// UpdateTaskStatus validates a status change and persists it when the store
// can record updates.
func (s *Service) UpdateTaskStatus(ctx context.Context, params UpdateStatusParams) (_ *engine.StatusUpdate, err error) {
	ic := s.start(ctx, OpUpdateTaskStatus, telemetry.AttrTaskID.String(params.TaskID))
	defer s.finish(ic, OpUpdateTaskStatus, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	update, err := s.tracker.UpdateStatus(params.TaskID, params.NewStatus, params.Notes, params.CompletedBy)
	if err != nil {
		return nil, err
	}

	if recorder, ok := s.store.(engine.StatusRecorder); ok {
		if err := recorder.ApplyStatusUpdate(ic.Ctx, update); err != nil {
			return nil, err
		}
	}

	changedBy := ""
	if update.CompletedBy != nil {
		changedBy = *update.CompletedBy
	}
	ic.Span.SetAttributes(telemetry.AttrTaskStatus.String(string(update.NewStatus)))
	s.tel.Metrics.RecordStatusUpdate(string(update.NewStatus))
	_ = s.tel.Events.PublishTaskStatusChanged(update.TaskID, string(update.NewStatus), changedBy)
	ic.Logger.WithTaskID(update.TaskID).Infof("task status set to %s", update.NewStatus)

	return update, nil
}

// GetCloseProgress reports completion, lateness and health for a period.
func (s *Service) GetCloseProgress(ctx context.Context, params PeriodParams) (_ *ProgressResult, err error) {
	ic := s.start(ctx, OpGetCloseProgress, telemetry.AttrPeriod.String(params.Period))
	defer s.finish(ic, OpGetCloseProgress, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	rows, err := s.periodTasks(ic.Ctx, params.Period, progressQuery)
	if err != nil {
		return nil, err
	}

	today := engine.DateOf(s.now())
	progress := engine.GetProgress(params.Period, rows, today)

	health := progress.Health.Status
	ic.Span.SetAttributes(telemetry.AttrHealth.String(string(health)))
	s.tel.Metrics.SetCloseHealth(params.Period, health.Score(),
		progress.Progress.CompletionPercentage, progress.Progress.Blocked, progress.LateTaskCount)
	_ = s.tel.Events.PublishHealthAssessed(params.Period, string(health), progress.Progress.CompletionPercentage)

	result := &ProgressResult{Progress: progress}
	result.PolicyViolations = s.checkControls(ic, OpGetCloseProgress, &policy.PolicyInput{
		Period:   params.Period,
		Today:    today.String(),
		Progress: progress,
		Blockers: engine.IdentifyBlockers(params.Period, rows),
	})

	return result, nil
}

// IdentifyBlockers reports blocked tasks and what holds them up.
func (s *Service) IdentifyBlockers(ctx context.Context, params PeriodParams) (_ *BlockersResult, err error) {
	ic := s.start(ctx, OpIdentifyBlockers, telemetry.AttrPeriod.String(params.Period))
	defer s.finish(ic, OpIdentifyBlockers, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	rows, err := s.periodTasks(ic.Ctx, params.Period, blockersQuery)
	if err != nil {
		return nil, err
	}

	report := engine.IdentifyBlockers(params.Period, rows)
	s.tel.Metrics.SetBlockedTasks(params.Period, report.BlockedCount)

	result := &BlockersResult{BlockerReport: report}
	today := engine.DateOf(s.now())
	result.PolicyViolations = s.checkControls(ic, OpIdentifyBlockers, &policy.PolicyInput{
		Period:   params.Period,
		Today:    today.String(),
		Progress: engine.GetProgress(params.Period, rows, today),
		Blockers: report,
	})

	return result, nil
}

// GenerateCloseCalendar lays the catalog onto business days. It does not touch the store.
func (s *Service) GenerateCloseCalendar(ctx context.Context, params CalendarParams) (_ *engine.CloseCalendar, err error) {
	ic := s.start(ctx, OpGenerateCloseCalendar, telemetry.AttrPeriod.String(params.Period))
	defer s.finish(ic, OpGenerateCloseCalendar, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	return engine.BuildCalendar(s.catalog, params.Period, params.PeriodEndDate, closeDaysOrDefault(params.CloseDays))
}

// GetCriticalPath reports the longest dependency chain. It does not touch the store.
func (s *Service) GetCriticalPath(ctx context.Context, params PeriodParams) (_ *engine.CriticalPathReport, err error) {
	ic := s.start(ctx, OpGetCriticalPath, telemetry.AttrPeriod.String(params.Period))
	defer s.finish(ic, OpGetCriticalPath, &err)

	if err := validateParams(&params); err != nil {
		return nil, err
	}

	return s.catalog.CriticalPath(params.Period), nil
}

// periodTasks loads a period's task rows, failing with NotFound for unknown periods.
func (s *Service) periodTasks(ctx context.Context, period, statement string) ([]engine.TaskRow, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}

	found, err := s.store.ExecuteQuery(ctx, periodQuery, period)
	if err != nil {
		return nil, err
	}
	if len(found.Rows) == 0 {
		return nil, engine.NewNotFoundError("fiscal period not found: "+period, nil).
			WithCode(engine.ErrCodeNotFound).
			WithPeriod(period)
	}

	result, err := s.store.ExecuteQuery(ctx, statement, period)
	if err != nil {
		return nil, err
	}
	return decodeTaskRows(result)
}

// checkControls evaluates close-control policies. Failures are logged and
// never fail the operation.
func (s *Service) checkControls(ic *telemetry.InstrumentedContext, op string, input *policy.PolicyInput) []policy.PolicyViolation {
	if s.policies == nil {
		return nil
	}

	input.Context = &policy.PolicyContext{
		Operation:   op,
		Environment: s.environment,
		Timestamp:   s.now(),
	}

	result, err := s.policies.Evaluate(ic.Ctx, input)
	if err != nil {
		ic.Logger.WithError(err).Warn("close-control evaluation failed")
		return nil
	}
	for _, msg := range result.Errors {
		ic.Logger.Warnf("close-control policy error: %s", msg)
	}

	for _, v := range result.Violations {
		s.tel.Metrics.RecordPolicyViolation(v.Policy)
		_ = s.tel.Events.PublishPolicyViolation(input.Period, v.Policy, v.Message)
	}
	if len(result.Violations) > 0 {
		ic.Logger.WithPeriod(input.Period).Infof("%d close-control violations", len(result.Violations))
	}
	return result.Violations
}
