package collection_handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanadmin/internal/dto"
	"loanadmin/internal/service"
	"loanadmin/pkg/common"
)

type CollectionHandler struct {
	collectionService service.CollectionService
	validate          *validator.Validate

	meter           metric.Meter
	tracer          trace.Tracer
	log             *zap.Logger
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
}

func NewCollectionHandler(
	collectionService service.CollectionService,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *CollectionHandler {
	requestCount, err := meter.Int64Counter(
		"api.request.count",
		metric.WithDescription("Number of API requests received"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create request count metric", zap.Error(err))
	}

	requestDuration, err := meter.Float64Histogram(
		"api.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create request duration metric", zap.Error(err))
	}

	errorCount, err := meter.Int64Counter(
		"api.error.count",
		metric.WithDescription("Number of API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create error count metric", zap.Error(err))
	}

	return &CollectionHandler{
		collectionService: collectionService,
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		meter:             meter,
		tracer:            tracer,
		log:               log,
		requestCount:      requestCount,
		requestDuration:   requestDuration,
		errorCount:        errorCount,
	}
}

func (h *CollectionHandler) recordError(
	ctx context.Context, span trace.Span, c *fiber.Ctx,
	start time.Time, err error, statusCode int, errorType, message string, fields ...zap.Field) error {
	h.errorCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
		attribute.String("error_type", errorType),
		attribute.Int("status_code", statusCode),
	))

	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	h.requestDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
		attribute.Int("status_code", statusCode),
	))

	span.SetAttributes(
		attribute.String("error.type", errorType),
		attribute.String("error.message", err.Error()),
		attribute.Int("http.status_code", statusCode),
	)
	span.RecordError(err)

	logFields := append([]zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.Int("status_code", statusCode),
		zap.String("error_type", errorType),
		zap.Float64("duration_ms", duration),
	}, fields...)

	h.log.Error(message, logFields...)

	return c.Status(statusCode).JSON(fiber.Map{"error": message})
}

// RecordPayment settles one overdue installment and returns the receipt.
func (h *CollectionHandler) RecordPayment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.RecordPayment")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("http.method", c.Method()),
		attribute.String("http.route", c.Path()),
		attribute.String("http.client_ip", c.IP()),
	)

	h.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
	))

	var req dto.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusBadRequest, "parse_error", "Cannot parse request body", zap.Error(err))
	}

	if err := h.validate.Struct(req); err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusBadRequest, "validation_error", "Validation failed", zap.Error(err))
	}

	span.SetAttributes(attribute.Int64("emi.id", int64(req.EmiID)))

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	receipt, err := h.collectionService.RecordPayment(serviceCtx, req.EmiID)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrEmiNotFound):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusNotFound, "emi_not_found", "Installment not found", zap.Uint64("emi_id", req.EmiID))
		case errors.Is(err, common.ErrEmiAlreadyPaid):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusConflict, "emi_already_paid", "Installment already paid", zap.Uint64("emi_id", req.EmiID))
		default:
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
		}
	}

	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	h.requestDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
		attribute.Int("status_code", fiber.StatusOK),
	))

	h.log.Info("Payment recorded",
		zap.Uint64("emi_id", req.EmiID),
		zap.String("receipt_id", receipt.ReceiptID),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetAttributes(attribute.String("emi.receipt_id", receipt.ReceiptID))

	return c.Status(fiber.StatusOK).JSON(receipt)
}
