package emirepo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"loanadmin/internal/domain"
	"loanadmin/internal/model"
	"loanadmin/internal/repository"
	"loanadmin/pkg/common"
)

type emiRepository struct {
	db     *gorm.DB
	meter  metric.Meter
	tracer trace.Tracer
	log    *zap.Logger

	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	rowsRetrieved metric.Int64Counter
	emisPaid      metric.Int64Counter
	emisSwept     metric.Int64Counter
}

func NewEmiRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.EmiRepository {
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

	rowsRetrieved, _ := meter.Int64Counter(
		"repository.rows.retrieved",
		metric.WithDescription("Number of rows retrieved"),
		metric.WithUnit("{row}"),
	)

	emisPaid, _ := meter.Int64Counter(
		"repository.emis.paid",
		metric.WithDescription("Number of installments marked paid"),
		metric.WithUnit("{emi}"),
	)

	emisSwept, _ := meter.Int64Counter(
		"repository.emis.swept_overdue",
		metric.WithDescription("Number of installments swept to overdue"),
		metric.WithUnit("{emi}"),
	)

	return &emiRepository{
		db:            db,
		meter:         meter,
		tracer:        tracer,
		log:           log,
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
		rowsRetrieved: rowsRetrieved,
		emisPaid:      emisPaid,
		emisSwept:     emisSwept,
	}
}

func (e *emiRepository) recordQuery(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	e.queryDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("table", "emis"),
			attribute.String("status", status),
		),
	)
}

// FindByID implements repository.EmiRepository.
func (e *emiRepository) FindByID(ctx context.Context, id uint64) (*domain.Emi, error) {
	ctx, span := e.tracer.Start(ctx, "repository.FindEmiByID")
	defer span.End()

	start := time.Now()

	e.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "emis"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "emis"),
		attribute.Int64("emi.id", int64(id)),
	)

	var record model.Emi
	err := e.db.WithContext(ctx).Preload("Loan").First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Ok, "Installment not found")
			e.recordQuery(ctx, start, "select", "not_found")
			return nil, nil
		}

		span.SetStatus(codes.Error, "Error finding installment by id")
		span.RecordError(err)

		e.log.Error("Error finding installment by id",
			zap.Uint64("emi_id", id),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "select", "error")
		return nil, err
	}

	emi := model.EmiToEntity(record)
	emi.Loan = *model.LoanToEntity(record.Loan)

	e.rowsRetrieved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("table", "emis")),
	)
	e.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Installment found")

	return emi, nil
}

type overdueRow struct {
	LoanID         uint64
	LoanCode       string
	CustomerName   string
	CustomerMobile string
	EmiNumber      int
	EmiDate        time.Time
	Amount         float64
	LateCharge     float64
	Status         string
}

// FindOverduePaginated implements repository.EmiRepository. Rows are ordered
// by due date then id so repeated pages of the same filter never shuffle.
func (e *emiRepository) FindOverduePaginated(ctx context.Context, params domain.Params) ([]domain.OverdueLineItem, int64, error) {
	ctx, span := e.tracer.Start(ctx, "repository.FindOverduePaginated")
	defer span.End()

	start := time.Now()

	e.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "emis"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "emis"),
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
		attribute.String("filter.search", params.Search),
		attribute.Int64("filter.customer_id", int64(params.CustomerID)),
	)

	query := e.db.WithContext(ctx).Model(&model.Emi{}).
		Joins("JOIN loans ON loans.id = emis.loan_id").
		Joins("JOIN users ON users.id = loans.customer_id").
		Where("emis.status = ?", string(domain.EmiOverdue))

	if params.CustomerID != 0 {
		query = query.Where("loans.customer_id = ?", params.CustomerID)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("loans.loan_code LIKE ? OR users.full_name LIKE ? OR users.mobile LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.SetStatus(codes.Error, "Error counting overdue installments")
		span.RecordError(err)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	var rows []overdueRow
	offset := (params.Page - 1) * params.Limit
	err := query.
		Select("emis.loan_id, loans.loan_code, users.full_name AS customer_name, users.mobile AS customer_mobile, emis.emi_number, emis.emi_date, emis.amount, emis.late_charge, emis.status").
		Order("emis.emi_date ASC, emis.id ASC").
		Offset(offset).Limit(params.Limit).
		Scan(&rows).Error
	if err != nil {
		span.SetStatus(codes.Error, "Error listing overdue installments")
		span.RecordError(err)

		e.log.Error("Error listing overdue installments",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	items := make([]domain.OverdueLineItem, len(rows))
	for i, row := range rows {
		items[i] = domain.OverdueLineItem{
			LoanID:         row.LoanID,
			LoanCode:       row.LoanCode,
			CustomerName:   row.CustomerName,
			CustomerMobile: row.CustomerMobile,
			EmiNumber:      row.EmiNumber,
			EmiDate:        row.EmiDate,
			Amount:         decimal.NewFromFloat(row.Amount),
			LateCharge:     decimal.NewFromFloat(row.LateCharge),
			Status:         domain.EmiStatus(row.Status),
		}
	}

	e.rowsRetrieved.Add(ctx, int64(len(items)),
		metric.WithAttributes(attribute.String("table", "emis")),
	)
	e.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Overdue installments listed")
	span.SetAttributes(attribute.Int64("emis.total", total))

	return items, total, nil
}

// MarkOverdueBefore implements repository.EmiRepository.
func (e *emiRepository) MarkOverdueBefore(ctx context.Context, cutoff time.Time, lateCharge float64) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "repository.MarkOverdueBefore")
	defer span.End()

	start := time.Now()

	e.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "update"),
			attribute.String("table", "emis"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "update"),
		attribute.String("db.table", "emis"),
		attribute.String("sweep.cutoff", cutoff.Format(time.RFC3339)),
		attribute.Float64("sweep.late_charge", lateCharge),
	)

	result := e.db.WithContext(ctx).Model(&model.Emi{}).
		Where("status = ? AND emi_date < ?", string(domain.EmiPending), cutoff).
		Updates(map[string]any{
			"status":      string(domain.EmiOverdue),
			"late_charge": gorm.Expr("late_charge + ?", lateCharge),
		})
	if result.Error != nil {
		span.SetStatus(codes.Error, "Error sweeping overdue installments")
		span.RecordError(result.Error)

		e.log.Error("Error sweeping overdue installments",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(result.Error),
		)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "update"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "update", "error")
		return 0, result.Error
	}

	e.emisSwept.Add(ctx, result.RowsAffected)
	e.recordQuery(ctx, start, "update", "success")
	span.SetStatus(codes.Ok, "Overdue sweep complete")
	span.SetAttributes(attribute.Int64("sweep.rows", result.RowsAffected))

	return result.RowsAffected, nil
}

// MarkPaid implements repository.EmiRepository. Paying an installment twice
// is rejected, not overwritten; the first receipt stands.
func (e *emiRepository) MarkPaid(ctx context.Context, emiID uint64, receiptID string, paidAt time.Time) error {
	ctx, span := e.tracer.Start(ctx, "repository.MarkEmiPaid")
	defer span.End()

	start := time.Now()

	e.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "update"),
			attribute.String("table", "emis"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "update"),
		attribute.String("db.table", "emis"),
		attribute.Int64("emi.id", int64(emiID)),
		attribute.String("emi.receipt_id", receiptID),
	)

	result := e.db.WithContext(ctx).Model(&model.Emi{}).
		Where("id = ? AND status <> ?", emiID, string(domain.EmiPaid)).
		Updates(map[string]any{
			"status":     string(domain.EmiPaid),
			"paid_at":    paidAt,
			"receipt_id": receiptID,
		})
	if result.Error != nil {
		span.SetStatus(codes.Error, "Error marking installment paid")
		span.RecordError(result.Error)

		e.log.Error("Error marking installment paid",
			zap.Uint64("emi_id", emiID),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(result.Error),
		)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "update"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "update", "error")
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := e.db.WithContext(ctx).Model(&model.Emi{}).Where("id = ?", emiID).Count(&count).Error; err != nil {
			e.recordQuery(ctx, start, "update", "error")
			return err
		}
		e.recordQuery(ctx, start, "update", "not_found")
		if count == 0 {
			span.SetStatus(codes.Ok, "Installment not found")
			return common.ErrEmiNotFound
		}
		span.SetStatus(codes.Ok, "Installment already paid")
		return common.ErrEmiAlreadyPaid
	}

	e.emisPaid.Add(ctx, 1)
	e.recordQuery(ctx, start, "update", "success")
	span.SetStatus(codes.Ok, "Installment marked paid")

	return nil
}

// CountUnpaidByLoan implements repository.EmiRepository.
func (e *emiRepository) CountUnpaidByLoan(ctx context.Context, loanID uint64) (int64, error) {
	ctx, span := e.tracer.Start(ctx, "repository.CountUnpaidByLoan")
	defer span.End()

	start := time.Now()

	e.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "emis"),
		),
	)

	var count int64
	err := e.db.WithContext(ctx).Model(&model.Emi{}).
		Where("loan_id = ? AND status <> ?", loanID, string(domain.EmiPaid)).
		Count(&count).Error
	if err != nil {
		span.SetStatus(codes.Error, "Error counting unpaid installments")
		span.RecordError(err)

		e.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "emis"),
			),
		)

		e.recordQuery(ctx, start, "select", "error")
		return 0, err
	}

	e.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Unpaid installments counted")

	return count, nil
}
