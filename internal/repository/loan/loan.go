package loanrepo

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"loanadmin/internal/domain"
	"loanadmin/internal/model"
	"loanadmin/internal/repository"
)

type loanRepository struct {
	db     *gorm.DB
	meter  metric.Meter
	tracer trace.Tracer
	log    *zap.Logger

	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	loansCreated  metric.Int64Counter
}

func NewLoanRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.LoanRepository {
	queryDuration, _ := meter.Float64Histogram(
		"repository.query.duration",
		metric.WithDescription("Duration of repository queries"),
		metric.WithUnit("ms"),
	)

	queryCount, _ := meter.Int64Counter(
		"repository.query.count",
		metric.WithDescription("Number of repository queries"),
		metric.WithUnit("{query}"),
	)

	errorCount, _ := meter.Int64Counter(
		"repository.error.count",
		metric.WithDescription("Number of repository errors"),
		metric.WithUnit("{error}"),
	)

	loansCreated, _ := meter.Int64Counter(
		"repository.loans.created",
		metric.WithDescription("Number of loans created"),
		metric.WithUnit("{loan}"),
	)

	return &loanRepository{
		db:            db,
		meter:         meter,
		tracer:        tracer,
		log:           log,
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
		loansCreated:  loansCreated,
	}
}

func (l *loanRepository) recordQuery(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	l.queryDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("table", "loans"),
			attribute.String("status", status),
		),
	)
}

// CreateWithSchedule implements repository.LoanRepository. The loan and its
// installment schedule insert in one transaction; a loan must never exist
// without its EMIs.
func (l *loanRepository) CreateWithSchedule(ctx context.Context, loan *domain.Loan, schedule []domain.Emi) (*domain.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "repository.CreateLoanWithSchedule")
	defer span.End()

	start := time.Now()

	l.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "insert"),
			attribute.String("table", "loans"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "insert"),
		attribute.String("db.table", "loans"),
		attribute.String("loan.code", loan.LoanCode),
		attribute.Int("loan.installments", len(schedule)),
	)

	record := model.LoanFromEntity(loan)

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		emis := make([]model.Emi, len(schedule))
		for i, emi := range schedule {
			emis[i] = model.EmiFromEntity(&emi)
			emis[i].LoanID = record.ID
		}
		return tx.Create(&emis).Error
	})
	if err != nil {
		span.SetStatus(codes.Error, "Error creating loan with schedule")
		span.RecordError(err)

		l.log.Error("Error creating loan with schedule",
			zap.String("loan_code", loan.LoanCode),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		l.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "insert"),
				attribute.String("table", "loans"),
			),
		)

		l.recordQuery(ctx, start, "insert", "error")
		return nil, err
	}

	l.loansCreated.Add(ctx, 1)
	l.recordQuery(ctx, start, "insert", "success")
	span.SetStatus(codes.Ok, "Loan created")
	span.SetAttributes(attribute.Int64("loan.id", int64(record.ID)))

	return model.LoanToEntity(record), nil
}

// UpdateStatus implements repository.LoanRepository.
func (l *loanRepository) UpdateStatus(ctx context.Context, id uint64, status domain.LoanStatus) error {
	ctx, span := l.tracer.Start(ctx, "repository.UpdateLoanStatus")
	defer span.End()

	start := time.Now()

	l.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "update"),
			attribute.String("table", "loans"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "update"),
		attribute.String("db.table", "loans"),
		attribute.Int64("loan.id", int64(id)),
		attribute.String("loan.status", string(status)),
	)

	err := l.db.WithContext(ctx).Model(&model.Loan{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
	if err != nil {
		span.SetStatus(codes.Error, "Error updating loan status")
		span.RecordError(err)

		l.log.Error("Error updating loan status",
			zap.Uint64("loan_id", id),
			zap.String("status", string(status)),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		l.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "update"),
				attribute.String("table", "loans"),
			),
		)

		l.recordQuery(ctx, start, "update", "error")
		return err
	}

	l.recordQuery(ctx, start, "update", "success")
	span.SetStatus(codes.Ok, "Loan status updated")

	return nil
}

// FindByID implements repository.LoanRepository.
func (l *loanRepository) FindByID(ctx context.Context, id uint64) (*domain.Loan, error) {
	ctx, span := l.tracer.Start(ctx, "repository.FindLoanByID")
	defer span.End()

	start := time.Now()

	l.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "loans"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "loans"),
		attribute.Int64("loan.id", int64(id)),
	)

	var record model.Loan
	err := l.db.WithContext(ctx).Preload("Customer").First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Ok, "Loan not found")
			l.recordQuery(ctx, start, "select", "not_found")
			return nil, nil
		}

		span.SetStatus(codes.Error, "Error finding loan by id")
		span.RecordError(err)

		l.log.Error("Error finding loan by id",
			zap.Uint64("loan_id", id),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		l.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "loans"),
			),
		)

		l.recordQuery(ctx, start, "select", "error")
		return nil, err
	}

	l.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Loan found")

	return model.LoanToEntity(record), nil
}

// FindPaginated implements repository.LoanRepository.
func (l *loanRepository) FindPaginated(ctx context.Context, params domain.Params) ([]domain.Loan, int64, error) {
	ctx, span := l.tracer.Start(ctx, "repository.FindLoansPaginated")
	defer span.End()

	start := time.Now()

	l.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "loans"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "loans"),
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
	)

	query := l.db.WithContext(ctx).Model(&model.Loan{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.CustomerID != 0 {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.Search != "" {
		query = query.Where("loan_code LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.SetStatus(codes.Error, "Error counting loans")
		span.RecordError(err)

		l.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "loans"),
			),
		)

		l.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	var records []model.Loan
	offset := (params.Page - 1) * params.Limit
	err := query.Preload("Customer").Order("disbursed_at DESC").Offset(offset).Limit(params.Limit).Find(&records).Error
	if err != nil {
		span.SetStatus(codes.Error, "Error listing loans")
		span.RecordError(err)

		l.log.Error("Error listing loans",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		l.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "loans"),
			),
		)

		l.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	l.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Loans listed")
	span.SetAttributes(attribute.Int64("loans.total", total))

	return model.LoansToEntity(records), total, nil
}
