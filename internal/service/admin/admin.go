package adminsrv

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	"loanadmin/pkg/password"
)

type adminService struct {
	userRepository repository.UserRepository
	loanRepository repository.LoanRepository

	meter             metric.Meter
	tracer            trace.Tracer
	log               *zap.Logger
	operationDuration metric.Float64Histogram
	operationCount    metric.Int64Counter
	errorCount        metric.Int64Counter
	usersCreated      metric.Int64Counter
	loansCreated      metric.Int64Counter
}

func (a *adminService) recordOp(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	a.operationDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("service", "admin"),
			attribute.String("status", status),
		),
	)
}

func (a *adminService) fail(ctx context.Context, span trace.Span, start time.Time, operation, errorType, msg string, err error, fields ...zap.Field) {
	span.SetStatus(codes.Error, msg)
	span.RecordError(err)

	fields = append(fields,
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.Error(err),
	)
	a.log.Error(msg, fields...)

	a.errorCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("service", "admin"),
			attribute.String("error_type", errorType),
		),
	)

	a.recordOp(ctx, start, operation, "error")
}

// CreateUser implements service.AdminService.
func (a *adminService) CreateUser(ctx context.Context, data dto.CreateUserRequest) (*domain.User, error) {
	ctx, span := a.tracer.Start(ctx, "service.CreateUser")
	defer span.End()

	start := time.Now()

	a.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "create_user"),
			attribute.String("service", "admin"),
		),
	)

	span.SetAttributes(
		attribute.String("user.mobile", data.Mobile),
		attribute.String("user.role", data.Role),
		attribute.String("service", "admin"),
	)

	role := domain.NormalizeRole(data.Role)
	switch role {
	case domain.AdminRole, domain.AgentRole, domain.CustomerRole:
	default:
		err := common.ErrInvalidRole
		a.fail(ctx, span, start, "create_user", "invalid_role", "Rejected user role", err,
			zap.String("role", data.Role))
		return nil, err
	}

	existing, err := a.userRepository.FindByMobile(ctx, data.Mobile)
	if err != nil {
		a.fail(ctx, span, start, "create_user", "repository_error", "Failed to check existing user", err,
			zap.String("mobile", data.Mobile))
		return nil, err
	}
	if existing != nil {
		err := common.ErrMobileExists
		a.fail(ctx, span, start, "create_user", "duplicate_mobile", "Mobile already registered", err,
			zap.String("mobile", data.Mobile))
		return nil, err
	}

	hashed, err := password.HashPassword(data.Password)
	if err != nil {
		a.fail(ctx, span, start, "create_user", "hash_error", "Failed to hash password", err)
		return nil, err
	}

	user := &domain.User{
		Mobile:   data.Mobile,
		FullName: data.FullName,
		Password: hashed,
		Role:     role,
		Active:   true,
	}

	created, err := a.userRepository.CreateUser(ctx, user)
	if err != nil {
		a.fail(ctx, span, start, "create_user", "create_failed", "Failed to create user", err,
			zap.String("mobile", data.Mobile))
		return nil, err
	}

	a.usersCreated.Add(ctx, 1)
	a.recordOp(ctx, start, "create_user", "success")

	a.log.Info("User created",
		zap.Uint64("user_id", created.ID),
		zap.String("role", string(created.Role)),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetStatus(codes.Ok, "User created")
	span.SetAttributes(attribute.Int64("user.id", int64(created.ID)))

	return created, nil
}

// ListUsers implements service.AdminService.
func (a *adminService) ListUsers(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	ctx, span := a.tracer.Start(ctx, "service.ListUsers")
	defer span.End()

	start := time.Now()

	a.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "list_users"),
			attribute.String("service", "admin"),
		),
	)

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
		attribute.String("service", "admin"),
	)

	users, total, err := a.userRepository.FindPaginated(ctx, params)
	if err != nil {
		a.fail(ctx, span, start, "list_users", "repository_error", "Failed to list users", err)
		return nil, err
	}

	a.recordOp(ctx, start, "list_users", "success")
	span.SetStatus(codes.Ok, "Users listed")
	span.SetAttributes(attribute.Int64("users.total", total))

	return paginate(users, total, params), nil
}

// CreateLoan implements service.AdminService. The schedule splits the
// principal into equal monthly installments; rounding residue lands on the
// final installment so the schedule always sums back to the principal.
func (a *adminService) CreateLoan(ctx context.Context, data dto.CreateLoanRequest) (*domain.Loan, error) {
	ctx, span := a.tracer.Start(ctx, "service.CreateLoan")
	defer span.End()

	start := time.Now()

	a.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "create_loan"),
			attribute.String("service", "admin"),
		),
	)

	span.SetAttributes(
		attribute.Int64("loan.customer_id", int64(data.CustomerID)),
		attribute.Int64("loan.agent_id", int64(data.AgentID)),
		attribute.Float64("loan.principal", data.PrincipalAmount),
		attribute.Int("loan.installments", data.InstallmentCount),
		attribute.String("service", "admin"),
	)

	customer, err := a.userRepository.FindByID(ctx, data.CustomerID)
	if err != nil {
		a.fail(ctx, span, start, "create_loan", "repository_error", "Failed to fetch customer", err,
			zap.Uint64("customer_id", data.CustomerID))
		return nil, err
	}
	if customer == nil || customer.Role != domain.CustomerRole {
		err := common.ErrNotACustomer
		a.fail(ctx, span, start, "create_loan", "not_a_customer", "Loan target is not a customer", err,
			zap.Uint64("customer_id", data.CustomerID))
		return nil, err
	}

	agent, err := a.userRepository.FindByID(ctx, data.AgentID)
	if err != nil {
		a.fail(ctx, span, start, "create_loan", "repository_error", "Failed to fetch agent", err,
			zap.Uint64("agent_id", data.AgentID))
		return nil, err
	}
	if agent == nil || agent.Role != domain.AgentRole {
		err := common.ErrNotAnAgent
		a.fail(ctx, span, start, "create_loan", "not_an_agent", "Assignee is not an agent", err,
			zap.Uint64("agent_id", data.AgentID))
		return nil, err
	}

	firstDue, err := time.Parse("2006-01-02", data.FirstDueDate)
	if err != nil {
		a.fail(ctx, span, start, "create_loan", "invalid_due_date", "Failed to parse first due date", err,
			zap.String("first_due_date", data.FirstDueDate))
		return nil, err
	}

	loan := &domain.Loan{
		LoanCode:         newLoanCode(),
		CustomerID:       data.CustomerID,
		AgentID:          data.AgentID,
		PrincipalAmount:  data.PrincipalAmount,
		InstallmentCount: data.InstallmentCount,
		DisbursedAt:      time.Now(),
		Status:           domain.LoanActive,
	}

	schedule := buildSchedule(data.PrincipalAmount, data.InstallmentCount, firstDue)

	created, err := a.loanRepository.CreateWithSchedule(ctx, loan, schedule)
	if err != nil {
		a.fail(ctx, span, start, "create_loan", "create_failed", "Failed to create loan", err,
			zap.String("loan_code", loan.LoanCode))
		return nil, err
	}

	a.loansCreated.Add(ctx, 1)
	a.recordOp(ctx, start, "create_loan", "success")

	a.log.Info("Loan created",
		zap.Uint64("loan_id", created.ID),
		zap.String("loan_code", created.LoanCode),
		zap.Int("installments", data.InstallmentCount),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetStatus(codes.Ok, "Loan created")
	span.SetAttributes(attribute.Int64("loan.id", int64(created.ID)))

	return created, nil
}

// ListLoans implements service.AdminService.
func (a *adminService) ListLoans(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	ctx, span := a.tracer.Start(ctx, "service.ListLoans")
	defer span.End()

	start := time.Now()

	a.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "list_loans"),
			attribute.String("service", "admin"),
		),
	)

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
		attribute.String("service", "admin"),
	)

	loans, total, err := a.loanRepository.FindPaginated(ctx, params)
	if err != nil {
		a.fail(ctx, span, start, "list_loans", "repository_error", "Failed to list loans", err)
		return nil, err
	}

	a.recordOp(ctx, start, "list_loans", "success")
	span.SetStatus(codes.Ok, "Loans listed")
	span.SetAttributes(attribute.Int64("loans.total", total))

	return paginate(loans, total, params), nil
}

func paginate(data any, total int64, params domain.Params) *domain.Paginated {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}
	return &domain.Paginated{
		Data:       data,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}
}

func newLoanCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LN-%s-%s", time.Now().Format("20060102"), suffix)
}

func buildSchedule(principal float64, count int, firstDue time.Time) []domain.Emi {
	total := decimal.NewFromFloat(principal)
	per := total.DivRound(decimal.NewFromInt(int64(count)), 2)

	schedule := make([]domain.Emi, count)
	for i := 0; i < count; i++ {
		amount := per
		if i == count-1 {
			amount = total.Sub(per.Mul(decimal.NewFromInt(int64(count - 1))))
		}
		schedule[i] = domain.Emi{
			EmiNumber: i + 1,
			EmiDate:   firstDue.AddDate(0, i, 0),
			Amount:    amount.InexactFloat64(),
			Status:    domain.EmiPending,
		}
	}
	return schedule
}

func NewAdminService(
	userRepository repository.UserRepository,
	loanRepository repository.LoanRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.AdminService {
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

	usersCreated, _ := meter.Int64Counter(
		"service.users.created",
		metric.WithDescription("Number of users created"),
		metric.WithUnit("{user}"),
	)

	loansCreated, _ := meter.Int64Counter(
		"service.loans.created",
		metric.WithDescription("Number of loans created"),
		metric.WithUnit("{loan}"),
	)

	return &adminService{
		userRepository: userRepository,
		loanRepository: loanRepository,

		meter:             meter,
		tracer:            tracer,
		log:               log,
		operationDuration: operationDuration,
		operationCount:    operationCount,
		errorCount:        errorCount,
		usersCreated:      usersCreated,
		loansCreated:      loansCreated,
	}
}
