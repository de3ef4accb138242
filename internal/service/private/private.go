package privatesrv

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
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

type privateService struct {
	userRepository repository.UserRepository

	jwtSecret string

	meter             metric.Meter
	tracer            trace.Tracer
	log               *zap.Logger
	operationDuration metric.Float64Histogram
	operationCount    metric.Int64Counter
	errorCount        metric.Int64Counter
	loginsSucceeded   metric.Int64Counter
}

func (p *privateService) recordOp(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	p.operationDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("service", "private"),
			attribute.String("status", status),
		),
	)
}

// Login implements service.PrivateService. The role inside the token is
// normalized once here; downstream checks compare the canonical value only.
func (p *privateService) Login(ctx context.Context, data dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx, span := p.tracer.Start(ctx, "service.Login")
	defer span.End()

	start := time.Now()

	p.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "login"),
			attribute.String("service", "private"),
		),
	)

	span.SetAttributes(
		attribute.String("user.mobile", data.Mobile),
		attribute.String("service", "private"),
	)

	user, err := p.userRepository.FindByMobile(ctx, data.Mobile)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to look up user")
		span.RecordError(err)

		p.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "login"),
				attribute.String("service", "private"),
				attribute.String("error_type", "repository_error"),
			),
		)

		p.recordOp(ctx, start, "login", "error")
		return nil, err
	}

	if user == nil || !user.Active || !password.CheckPasswordHash(data.Password, user.Password) {
		err := common.ErrInvalidCredentials
		span.SetStatus(codes.Error, "Invalid credentials")

		p.log.Warn("Login rejected",
			zap.String("mobile", data.Mobile),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
		)

		p.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "login"),
				attribute.String("service", "private"),
				attribute.String("error_type", "invalid_credentials"),
			),
		)

		p.recordOp(ctx, start, "login", "error")
		return nil, err
	}

	claims := &domain.JwtCustomClaims{
		UserID: user.ID,
		Role:   domain.NormalizeRole(string(user.Role)),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
			Issuer:    "loanadmin",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(p.jwtSecret))
	if err != nil {
		span.SetStatus(codes.Error, "Failed to sign token")
		span.RecordError(err)

		p.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "login"),
				attribute.String("service", "private"),
				attribute.String("error_type", "token_signing_error"),
			),
		)

		p.recordOp(ctx, start, "login", "error")
		return nil, err
	}

	p.loginsSucceeded.Add(ctx, 1)
	p.recordOp(ctx, start, "login", "success")

	p.log.Info("User logged in",
		zap.Uint64("user_id", user.ID),
		zap.String("role", string(claims.Role)),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetStatus(codes.Ok, "Login succeeded")
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))

	return &dto.LoginResponse{Token: signedToken}, nil
}

func NewPrivateService(
	jwtSecret string,
	userRepository repository.UserRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.PrivateService {
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

	loginsSucceeded, _ := meter.Int64Counter(
		"service.logins.succeeded",
		metric.WithDescription("Number of successful logins"),
		metric.WithUnit("{login}"),
	)

	return &privateService{
		userRepository: userRepository,

		jwtSecret: jwtSecret,

		meter:             meter,
		tracer:            tracer,
		log:               log,
		operationDuration: operationDuration,
		operationCount:    operationCount,
		errorCount:        errorCount,
		loginsSucceeded:   loginsSucceeded,
	}
}
