package admin_handler

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

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	"loanadmin/internal/service"
	"loanadmin/pkg/common"
)

type AdminHandler struct {
	adminService service.AdminService
	validate     *validator.Validate

	meter           metric.Meter
	tracer          trace.Tracer
	log             *zap.Logger
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
}

func NewAdminHandler(
	adminService service.AdminService,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *AdminHandler {
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

	return &AdminHandler{
		adminService:    adminService,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		meter:           meter,
		tracer:          tracer,
		log:             log,
		requestCount:    requestCount,
		requestDuration: requestDuration,
		errorCount:      errorCount,
	}
}

func (h *AdminHandler) recordError(
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

func (h *AdminHandler) recordSuccess(
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

func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.CreateUser")
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

	var req dto.CreateUserRequest
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

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := h.adminService.CreateUser(serviceCtx, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidRole):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusBadRequest, "invalid_role", "Unknown role", zap.String("role", req.Role))
		case errors.Is(err, common.ErrMobileExists):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusConflict, "duplicate_mobile", "Mobile number already registered", zap.String("mobile", req.Mobile))
		default:
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
		}
	}

	user.Password = ""

	return h.recordSuccess(ctx, span, c, start, fiber.StatusCreated, user,
		zap.Uint64("user_id", user.ID),
		zap.String("role", string(user.Role)),
	)
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.ListUsers")
	defer span.End()
	start := time.Now()

	h.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
	))

	params := domain.Params{
		Status: c.Query("role"),
		Search: c.Query("search"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 20
	}

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := h.adminService.ListUsers(serviceCtx, params)
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
	}

	return h.recordSuccess(ctx, span, c, start, fiber.StatusOK, res,
		zap.Int64("total", res.Total),
		zap.Int("page", res.Page),
	)
}

func (h *AdminHandler) CreateLoan(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.CreateLoan")
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

	var req dto.CreateLoanRequest
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

	span.SetAttributes(
		attribute.Int64("loan.customer_id", int64(req.CustomerID)),
		attribute.Float64("loan.principal", req.PrincipalAmount),
		attribute.Int("loan.installments", req.InstallmentCount),
	)

	serviceCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	loan, err := h.adminService.CreateLoan(serviceCtx, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotACustomer):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusUnprocessableEntity, "not_a_customer", "Borrower is not a customer", zap.Uint64("customer_id", req.CustomerID))
		case errors.Is(err, common.ErrNotAnAgent):
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusUnprocessableEntity, "not_an_agent", "Assignee is not an agent", zap.Uint64("agent_id", req.AgentID))
		default:
			return h.recordError(
				ctx, span, c, start, err,
				fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
		}
	}

	return h.recordSuccess(ctx, span, c, start, fiber.StatusCreated, loan,
		zap.Uint64("loan_id", loan.ID),
		zap.String("loan_code", loan.LoanCode),
	)
}

func (h *AdminHandler) ListLoans(c *fiber.Ctx) error {
	ctx := c.UserContext()
	ctx, span := h.tracer.Start(ctx, "handler.ListLoans")
	defer span.End()
	start := time.Now()

	h.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
	))

	params := domain.Params{
		Status:     c.Query("status"),
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

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := h.adminService.ListLoans(serviceCtx, params)
	if err != nil {
		return h.recordError(
			ctx, span, c, start, err,
			fiber.StatusInternalServerError, "service_error", "Internal server error", zap.Error(err))
	}

	return h.recordSuccess(ctx, span, c, start, fiber.StatusOK, res,
		zap.Int64("total", res.Total),
		zap.Int("page", res.Page),
	)
}
