package collectionsrv

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	"loanadmin/internal/repository"
	"loanadmin/internal/service"
	"loanadmin/pkg/common"
)

type collectionService struct {
	emiRepository  repository.EmiRepository
	loanRepository repository.LoanRepository

	meter             metric.Meter
	tracer            trace.Tracer
	log               *zap.Logger
	operationDuration metric.Float64Histogram
	operationCount    metric.Int64Counter
	errorCount        metric.Int64Counter
	paymentsRecorded  metric.Int64Counter
	loansClosed       metric.Int64Counter
}

func (c *collectionService) recordOp(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	c.operationDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("service", "collection"),
			attribute.String("status", status),
		),
	)
}

func (c *collectionService) fail(ctx context.Context, span trace.Span, start time.Time, errorType, msg string, err error, emiID uint64) {
	span.SetStatus(codes.Error, msg)
	span.RecordError(err)

	c.log.Error(msg,
		zap.Uint64("emi_id", emiID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.Error(err),
	)

	c.errorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "record_payment"),
			attribute.String("service", "collection"),
			attribute.String("error_type", errorType),
		),
	)

	c.recordOp(ctx, start, "record_payment", "error")
}

// RecordPayment implements service.CollectionService. Settling the last
// unpaid installment closes the loan.
func (c *collectionService) RecordPayment(ctx context.Context, emiID uint64) (*dto.PaymentReceiptResponse, error) {
	ctx, span := c.tracer.Start(ctx, "service.RecordPayment")
	defer span.End()

	start := time.Now()

	c.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "record_payment"),
			attribute.String("service", "collection"),
		),
	)

	span.SetAttributes(
		attribute.Int64("emi.id", int64(emiID)),
		attribute.String("service", "collection"),
	)

	emi, err := c.emiRepository.FindByID(ctx, emiID)
	if err != nil {
		c.fail(ctx, span, start, "repository_error", "Failed to fetch installment", err, emiID)
		return nil, err
	}
	if emi == nil {
		err := common.ErrEmiNotFound
		c.fail(ctx, span, start, "emi_not_found", "Installment not found", err, emiID)
		return nil, err
	}
	if emi.Status == domain.EmiPaid {
		err := common.ErrEmiAlreadyPaid
		c.fail(ctx, span, start, "emi_already_paid", "Installment already settled", err, emiID)
		return nil, err
	}

	receiptID := uuid.NewString()
	paidAt := time.Now()

	if err := c.emiRepository.MarkPaid(ctx, emiID, receiptID, paidAt); err != nil {
		c.fail(ctx, span, start, "mark_paid_error", "Failed to mark installment paid", err, emiID)
		return nil, err
	}

	unpaid, err := c.emiRepository.CountUnpaidByLoan(ctx, emi.LoanID)
	if err != nil {
		c.fail(ctx, span, start, "count_error", "Failed to count remaining installments", err, emiID)
		return nil, err
	}
	if unpaid == 0 {
		if err := c.loanRepository.UpdateStatus(ctx, emi.LoanID, domain.LoanClosed); err != nil {
			c.fail(ctx, span, start, "close_loan_error", "Failed to close loan", err, emiID)
			return nil, err
		}

		c.loansClosed.Add(ctx, 1)
		c.log.Info("Loan closed, schedule fully settled",
			zap.Uint64("loan_id", emi.LoanID),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
		)
		span.SetAttributes(attribute.Bool("loan.closed", true))
	}

	c.paymentsRecorded.Add(ctx, 1)
	c.recordOp(ctx, start, "record_payment", "success")

	c.log.Info("Payment recorded",
		zap.Uint64("emi_id", emiID),
		zap.Uint64("loan_id", emi.LoanID),
		zap.String("receipt_id", receiptID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetStatus(codes.Ok, "Payment recorded")
	span.SetAttributes(attribute.String("emi.receipt_id", receiptID))

	return &dto.PaymentReceiptResponse{
		ReceiptID: receiptID,
		EmiID:     emi.ID,
		LoanCode:  emi.Loan.LoanCode,
		EmiNumber: emi.EmiNumber,
		AmountDue: emi.Amount + emi.LateCharge,
		PaidAt:    paidAt,
	}, nil
}

func NewCollectionService(
	emiRepository repository.EmiRepository,
	loanRepository repository.LoanRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.CollectionService {
	operationDuration, _ := meter.Float64Histogram(
		"service.operation.duration",
		metric.WithDescription("Duration of service operations"),
		metric.WithUnit("ms"),
	)

	operationCount, _ := meter.Int64Counter(
		"service.operation.count",
		metric.WithDescription("Number of service operations"),
		metric.WithUnit("{operation}"),
	)

	errorCount, _ := meter.Int64Counter(
		"service.error.count",
		metric.WithDescription("Number of service errors"),
		metric.WithUnit("{error}"),
	)

	paymentsRecorded, _ := meter.Int64Counter(
		"service.payments.recorded",
		metric.WithDescription("Number of payments recorded"),
		metric.WithUnit("{payment}"),
	)

	loansClosed, _ := meter.Int64Counter(
		"service.loans.closed",
		metric.WithDescription("Number of loans closed"),
		metric.WithUnit("{loan}"),
	)

	return &collectionService{
		emiRepository:  emiRepository,
		loanRepository: loanRepository,

		meter:             meter,
		tracer:            tracer,
		log:               log,
		operationDuration: operationDuration,
		operationCount:    operationCount,
		errorCount:        errorCount,
		paymentsRecorded:  paymentsRecorded,
		loansClosed:       loansClosed,
	}
}
