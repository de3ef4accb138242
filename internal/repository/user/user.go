package userrepo

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

type userRepository struct {
	db     *gorm.DB
	meter  metric.Meter
	tracer trace.Tracer
	log    *zap.Logger

	queryDuration metric.Float64Histogram
	queryCount    metric.Int64Counter
	errorCount    metric.Int64Counter
	rowsRetrieved metric.Int64Counter
}

func NewUserRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.UserRepository {
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

	return &userRepository{
		db:            db,
		meter:         meter,
		tracer:        tracer,
		log:           log,
		queryDuration: queryDuration,
		queryCount:    queryCount,
		errorCount:    errorCount,
		rowsRetrieved: rowsRetrieved,
	}
}

func (u *userRepository) recordQuery(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	u.queryDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("table", "users"),
			attribute.String("status", status),
		),
	)
}

// CreateUser implements repository.UserRepository.
func (u *userRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, span := u.tracer.Start(ctx, "repository.CreateUser")
	defer span.End()

	start := time.Now()

	u.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "insert"),
			attribute.String("table", "users"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "insert"),
		attribute.String("db.table", "users"),
		attribute.String("user.mobile", user.Mobile),
	)

	record := model.UserFromEntity(user)
	if err := u.db.WithContext(ctx).Create(&record).Error; err != nil {
		span.SetStatus(codes.Error, "Error creating user")
		span.RecordError(err)

		u.log.Error("Error creating user",
			zap.String("mobile", user.Mobile),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		u.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "insert"),
				attribute.String("table", "users"),
			),
		)

		u.recordQuery(ctx, start, "insert", "error")
		return nil, err
	}

	u.recordQuery(ctx, start, "insert", "success")
	span.SetStatus(codes.Ok, "User created")

	return model.UserToEntity(record), nil
}

// FindByID implements repository.UserRepository.
func (u *userRepository) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	ctx, span := u.tracer.Start(ctx, "repository.FindUserByID")
	defer span.End()

	start := time.Now()

	u.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "users"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "users"),
		attribute.Int64("user.id", int64(id)),
	)

	var record model.User
	err := u.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Ok, "User not found")
			u.recordQuery(ctx, start, "select", "not_found")
			return nil, nil
		}

		span.SetStatus(codes.Error, "Error finding user by id")
		span.RecordError(err)

		u.log.Error("Error finding user by id",
			zap.Uint64("user_id", id),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		u.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "users"),
			),
		)

		u.recordQuery(ctx, start, "select", "error")
		return nil, err
	}

	u.rowsRetrieved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("table", "users")),
	)
	u.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "User found")

	return model.UserToEntity(record), nil
}

// FindByMobile implements repository.UserRepository.
func (u *userRepository) FindByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	ctx, span := u.tracer.Start(ctx, "repository.FindUserByMobile")
	defer span.End()

	start := time.Now()

	u.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "users"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "users"),
		attribute.String("user.mobile", mobile),
	)

	var record model.User
	err := u.db.WithContext(ctx).Where("mobile = ?", mobile).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Ok, "User not found")
			u.recordQuery(ctx, start, "select", "not_found")
			return nil, nil
		}

		span.SetStatus(codes.Error, "Error finding user by mobile")
		span.RecordError(err)

		u.log.Error("Error finding user by mobile",
			zap.String("mobile", mobile),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		u.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "users"),
			),
		)

		u.recordQuery(ctx, start, "select", "error")
		return nil, err
	}

	u.rowsRetrieved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("table", "users")),
	)
	u.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "User found")

	return model.UserToEntity(record), nil
}

// FindPaginated implements repository.UserRepository.
func (u *userRepository) FindPaginated(ctx context.Context, params domain.Params) ([]domain.User, int64, error) {
	ctx, span := u.tracer.Start(ctx, "repository.FindUsersPaginated")
	defer span.End()

	start := time.Now()

	u.queryCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "select"),
			attribute.String("table", "users"),
		),
	)

	span.SetAttributes(
		attribute.String("db.operation", "select"),
		attribute.String("db.table", "users"),
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
	)

	query := u.db.WithContext(ctx).Model(&model.User{})
	if params.Status != "" {
		query = query.Where("role = ?", params.Status)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("full_name LIKE ? OR mobile LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.SetStatus(codes.Error, "Error counting users")
		span.RecordError(err)

		u.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "users"),
			),
		)

		u.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	var records []model.User
	offset := (params.Page - 1) * params.Limit
	err := query.Order("created_at DESC").Offset(offset).Limit(params.Limit).Find(&records).Error
	if err != nil {
		span.SetStatus(codes.Error, "Error listing users")
		span.RecordError(err)

		u.log.Error("Error listing users",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		u.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "select"),
				attribute.String("table", "users"),
			),
		)

		u.recordQuery(ctx, start, "select", "error")
		return nil, 0, err
	}

	u.rowsRetrieved.Add(ctx, int64(len(records)),
		metric.WithAttributes(attribute.String("table", "users")),
	)
	u.recordQuery(ctx, start, "select", "success")
	span.SetStatus(codes.Ok, "Users listed")
	span.SetAttributes(attribute.Int64("users.total", total))

	return model.UsersToEntity(records), total, nil
}
