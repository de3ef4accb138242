package overdue_handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanadmin/internal/domain"
	"loanadmin/internal/report"
	"loanadmin/internal/service"
)

type OverdueHandler struct {
	overdueService service.OverdueService
	exporter       *report.Exporter

	meter           metric.Meter
	tracer          trace.Tracer
	log             *zap.Logger
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
}

func NewOverdueHandler(
	overdueService service.OverdueService,
	exporter *report.Exporter,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *OverdueHandler {
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

	return &OverdueHandler{
		overdueService:  overdueService,
		exporter:        exporter,
		meter:           meter,
		tracer:          tracer,
		log:             log,
		requestCount:    requestCount,
		requestDuration: requestDuration,
		errorCount:      errorCount,
	}
}

func (h *OverdueHandler) recordError(
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

func (h *OverdueHandler) recordSuccess(
	ctx context.Context, span trace.Span, c *fiber.Ctx,
	start time.Time, statusCode int, responseData interface{}, fields ...zap.Field) error {
	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	h.requestDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
		attribute.Int("status_code", statusCode),
	))

	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Float64("request.duration_ms", duration),
	)

	logFields := append([]zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.Int("status_code", statusCode),
		zap.Float64("duration_ms", duration),
	}, fields...)

	h.log.Info("Request completed successfully", logFields...)

	return c.Status(statusCode).JSON(responseData)
}

// ListOverdue serves one page of overdue installments for the scrolling
// console view.
func (h *OverdueHandler) ListOverdue(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.ListOverdue")
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

	params := domain.Params{
		Search:     c.Query("search"),
		CustomerID: uint64(c.QueryInt("customer_id", 0)),
		Page:       c.QueryInt("page", 1),
		Limit:      c.QueryInt("limit", 20),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
	)

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := h.overdueService.ListOverdue(serviceCtx, params)
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
	}

	return h.recordSuccess(ctx, span, c, start, fiber.StatusOK, res,
		zap.Int("results", len(res.Results)),
		zap.Int64("total_count", res.TotalCount),
	)
}

// Summary returns the complete per-loan rollup for the active filter.
func (h *OverdueHandler) Summary(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.OverdueSummary")
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

	search := c.Query("search")
	customerID := uint64(c.QueryInt("customer_id", 0))

	serviceCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := h.overdueService.Summarize(serviceCtx, search, customerID)
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
	}

	return h.recordSuccess(ctx, span, c, start, fiber.StatusOK, res,
		zap.Int("loans", len(res.Loans)),
		zap.Int64("total_count", res.TotalCount),
	)
}

// ExportReport streams the overdue rollup as an xlsx download.
func (h *OverdueHandler) ExportReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.ExportOverdueReport")
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

	search := c.Query("search")
	customerID := uint64(c.QueryInt("customer_id", 0))

	serviceCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	f, err := h.exporter.Export(serviceCtx, search, customerID)
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "export_error", "Failed to build report", zap.Error(err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "export_error", "Failed to encode report", zap.Error(err))
	}

	filename := fmt.Sprintf("overdue-report-%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	duration := float64(time.Since(start).Nanoseconds()) / 1e6
	h.requestDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
		attribute.Int("status_code", fiber.StatusOK),
	))

	h.log.Info("Report exported",
		zap.String("filename", filename),
		zap.Int("bytes", buf.Len()),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
