package jobs

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanadmin/config"
	"loanadmin/internal/repository"
)

// Sweeper flips pending installments whose due date has passed to overdue on
// a cron schedule, applying the configured flat late charge once per
// installment.
type Sweeper struct {
	emiRepository repository.EmiRepository
	cron          *cron.Cron
	spec          string
	lateCharge    float64

	meter      metric.Meter
	tracer     trace.Tracer
	log        *zap.Logger
	sweepRuns  metric.Int64Counter
	sweepSwept metric.Int64Counter
	sweepFails metric.Int64Counter
}

func NewSweeper(
	cfg *config.Config,
	emiRepository repository.EmiRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *Sweeper {
	lateCharge, err := strconv.ParseFloat(cfg.LATE_CHARGE_FLAT, 64)
	if err != nil || lateCharge < 0 {
		log.Warn("Invalid flat late charge, defaulting to zero",
			zap.String("value", cfg.LATE_CHARGE_FLAT),
		)
		lateCharge = 0
	}

	sweepRuns, _ := meter.Int64Counter(
		"jobs.sweep.runs",
		metric.WithDescription("Number of overdue sweep runs"),
		metric.WithUnit("{run}"),
	)

	sweepSwept, _ := meter.Int64Counter(
		"jobs.sweep.installments",
		metric.WithDescription("Number of installments swept to overdue"),
		metric.WithUnit("{emi}"),
	)

	sweepFails, _ := meter.Int64Counter(
		"jobs.sweep.failures",
		metric.WithDescription("Number of failed sweep runs"),
		metric.WithUnit("{run}"),
	)

	return &Sweeper{
		emiRepository: emiRepository,
		cron:          cron.New(),
		spec:          cfg.OVERDUE_SWEEP_SPEC,
		lateCharge:    lateCharge,

		meter:      meter,
		tracer:     tracer,
		log:        log,
		sweepRuns:  sweepRuns,
		sweepSwept: sweepSwept,
		sweepFails: sweepFails,
	}
}

// Start registers the cron entry and begins the schedule. One sweep also runs
// immediately so a restart never leaves yesterday's installments pending.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("Overdue sweeper started", zap.String("spec", s.spec))

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	}()

	return nil
}

func (s *Sweeper) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.log.Info("Overdue sweeper stopped")
}

// RunOnce performs a single sweep. The cutoff is local midnight: an
// installment due yesterday or earlier is overdue, one due today is not.
func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "jobs.OverdueSweep")
	defer span.End()

	s.sweepRuns.Add(ctx, 1)

	now := time.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	span.SetAttributes(
		attribute.String("sweep.cutoff", cutoff.Format(time.RFC3339)),
		attribute.Float64("sweep.late_charge", s.lateCharge),
	)

	swept, err := s.emiRepository.MarkOverdueBefore(ctx, cutoff, s.lateCharge)
	if err != nil {
		span.SetStatus(codes.Error, "Overdue sweep failed")
		span.RecordError(err)

		s.sweepFails.Add(ctx, 1)
		s.log.Error("Overdue sweep failed",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)
		return
	}

	s.sweepSwept.Add(ctx, swept)
	span.SetStatus(codes.Ok, "Overdue sweep complete")
	span.SetAttributes(attribute.Int64("sweep.rows", swept))

	s.log.Info("Overdue sweep complete",
		zap.Int64("swept", swept),
		zap.String("cutoff", cutoff.Format("2006-01-02")),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)
}
