package overduesrv

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	"loanadmin/internal/overdue"
	"loanadmin/internal/repository"
	"loanadmin/internal/service"
)

const summaryPageSize = 100

type overdueService struct {
	emiRepository repository.EmiRepository

	meter             metric.Meter
	tracer            trace.Tracer
	log               *zap.Logger
	operationDuration metric.Float64Histogram
	operationCount    metric.Int64Counter
	errorCount        metric.Int64Counter
	pagesServed       metric.Int64Counter
	itemsAggregated   metric.Int64Counter
}

func (o *overdueService) recordOp(ctx context.Context, start time.Time, operation, status string) {
	duration := float64(time.Since(start).Milliseconds())
	o.operationDuration.Record(ctx, duration,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("service", "overdue"),
			attribute.String("status", status),
		),
	)
}

// FetchPage implements overdue.PageFetcher. Sessions and the list endpoint
// go through the same repository query so both see identical ordering.
func (o *overdueService) FetchPage(ctx context.Context, params domain.Params) (overdue.Page, error) {
	items, total, err := o.emiRepository.FindOverduePaginated(ctx, params)
	if err != nil {
		return overdue.Page{}, err
	}
	return overdue.Page{Items: items, TotalCount: total}, nil
}

// ListOverdue implements service.OverdueService.
func (o *overdueService) ListOverdue(ctx context.Context, params domain.Params) (*dto.OverdueListResponse, error) {
	ctx, span := o.tracer.Start(ctx, "service.ListOverdue")
	defer span.End()

	start := time.Now()

	o.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "list_overdue"),
			attribute.String("service", "overdue"),
		),
	)

	span.SetAttributes(
		attribute.Int("pagination.page", params.Page),
		attribute.Int("pagination.limit", params.Limit),
		attribute.String("filter.search", params.Search),
		attribute.Int64("filter.customer_id", int64(params.CustomerID)),
		attribute.String("service", "overdue"),
	)

	items, total, err := o.emiRepository.FindOverduePaginated(ctx, params)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list overdue installments")
		span.RecordError(err)

		o.log.Error("Failed to list overdue installments",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		o.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "list_overdue"),
				attribute.String("service", "overdue"),
				attribute.String("error_type", "repository_error"),
			),
		)

		o.recordOp(ctx, start, "list_overdue", "error")
		return nil, err
	}

	results := make([]dto.EmiLineItem, len(items))
	for i, item := range items {
		results[i] = dto.LineItemToDTO(item)
	}

	o.pagesServed.Add(ctx, 1)
	o.recordOp(ctx, start, "list_overdue", "success")

	span.SetStatus(codes.Ok, "Overdue installments listed")
	span.SetAttributes(attribute.Int64("overdue.total", total))

	return &dto.OverdueListResponse{Results: results, TotalCount: total}, nil
}

// Summarize implements service.OverdueService. A fresh session drains every
// page for the filter and the rollup comes straight from its aggregator.
func (o *overdueService) Summarize(ctx context.Context, search string, customerID uint64) (*dto.OverdueSummaryResponse, error) {
	ctx, span := o.tracer.Start(ctx, "service.SummarizeOverdue")
	defer span.End()

	start := time.Now()

	o.operationCount.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "summarize_overdue"),
			attribute.String("service", "overdue"),
		),
	)

	span.SetAttributes(
		attribute.String("filter.search", search),
		attribute.Int64("filter.customer_id", int64(customerID)),
		attribute.String("service", "overdue"),
	)

	session := overdue.NewSession(o, summaryPageSize, o.log)
	session.Reset(search, customerID)

	if err := session.FetchAll(ctx); err != nil {
		span.SetStatus(codes.Error, "Failed to aggregate overdue installments")
		span.RecordError(err)

		o.log.Error("Failed to aggregate overdue installments",
			zap.String("search", search),
			zap.Uint64("customer_id", customerID),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.Error(err),
		)

		o.errorCount.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("operation", "summarize_overdue"),
				attribute.String("service", "overdue"),
				attribute.String("error_type", "aggregation_error"),
			),
		)

		o.recordOp(ctx, start, "summarize_overdue", "error")
		return nil, err
	}

	agg := session.Aggregator()

	o.itemsAggregated.Add(ctx, int64(agg.Items()))
	o.recordOp(ctx, start, "summarize_overdue", "success")

	o.log.Info("Overdue summary built",
		zap.Int("loans", agg.Loans()),
		zap.Int("items", agg.Items()),
		zap.Int64("total_count", session.TotalCount()),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	span.SetStatus(codes.Ok, "Overdue summary built")
	span.SetAttributes(
		attribute.Int("overdue.loans", agg.Loans()),
		attribute.Int("overdue.items", agg.Items()),
	)

	return &dto.OverdueSummaryResponse{
		SummaryByLoan: agg.SummaryByLoan(),
		DetailByLoan:  agg.DetailByLoan(),
		Loans:         agg.Summaries(),
		TotalCount:    session.TotalCount(),
	}, nil
}

func NewOverdueService(
	emiRepository repository.EmiRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.OverdueService {
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

	pagesServed, _ := meter.Int64Counter(
		"service.overdue.pages_served",
		metric.WithDescription("Number of overdue pages served"),
		metric.WithUnit("{page}"),
	)

	itemsAggregated, _ := meter.Int64Counter(
		"service.overdue.items_aggregated",
		metric.WithDescription("Number of overdue line items aggregated"),
		metric.WithUnit("{item}"),
	)

	return &overdueService{
		emiRepository: emiRepository,

		meter:             meter,
		tracer:            tracer,
		log:               log,
		operationDuration: operationDuration,
		operationCount:    operationCount,
		errorCount:        errorCount,
		pagesServed:       pagesServed,
		itemsAggregated:   itemsAggregated,
	}
}
