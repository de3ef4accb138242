package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gofiber/fiber/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"go.opentelemetry.io/otel/metric"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	noop_trace "go.opentelemetry.io/otel/trace/noop"

	"go.uber.org/zap"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	overdue_handler "loanadmin/internal/handler/overdue"
	"loanadmin/internal/report"
	"loanadmin/middleware"
)

type OverdueHandlerTestSuite struct {
	suite.Suite
	app                *fiber.App
	handler            *overdue_handler.OverdueHandler
	mockOverdueService *MockOverdueService

	jwtSecret string

	meter  metric.Meter
	tracer trace.Tracer
	log    *zap.Logger
}

func (suite *OverdueHandlerTestSuite) SetupTest() {
	suite.mockOverdueService = &MockOverdueService{}
	suite.jwtSecret = "test-overdue-secret-key"

	suite.log = zap.NewNop()
	noopTracerProvider := noop_trace.NewTracerProvider()
	suite.tracer = noopTracerProvider.Tracer("test-overdue-handler-tracer")
	noopMeterProvider := noop_metric.NewMeterProvider()
	suite.meter = noopMeterProvider.Meter("test-overdue-handler-meter")

	exporter := report.NewExporter(suite.mockOverdueService, suite.log)

	suite.handler = overdue_handler.NewOverdueHandler(
		suite.mockOverdueService,
		exporter,
		suite.meter,
		suite.tracer,
		suite.log,
	)

	app := fiber.New()

	jwtAuth := middleware.NewJWTAuthMiddleware(suite.jwtSecret)
	requireAgent := middleware.RequireRole(domain.AgentRole, domain.AdminRole, domain.SuperAdminRole)

	agentGroup := app.Group("/agent", jwtAuth, requireAgent)
	{
		agentGroup.Get("/overdue-emis", suite.handler.ListOverdue)
		agentGroup.Get("/overdue-summary", suite.handler.Summary)
		agentGroup.Get("/overdue-report", suite.handler.ExportReport)
	}

	suite.app = app
}

func (suite *OverdueHandlerTestSuite) authCookie(role domain.Role) *http.Cookie {
	claims := &domain.JwtCustomClaims{
		UserID: 3,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(suite.jwtSecret))
	assert.NoError(suite.T(), err)

	return &http.Cookie{Name: "private", Value: signedToken}
}

func (suite *OverdueHandlerTestSuite) TestListOverdueSuccess() {
	suite.mockOverdueService.MockListResult = &dto.OverdueListResponse{
		Results: []dto.EmiLineItem{
			{LoanID: 7, LoanCode: "LN-7", EmiNumber: 2, EmiDate: "2024-01-10", Status: "OVERDUE"},
		},
		TotalCount: 41,
	}

	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-emis?page=1&limit=20", nil)
	req.AddCookie(suite.authCookie(domain.AgentRole))

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var body dto.OverdueListResponse
	assert.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(suite.T(), int64(41), body.TotalCount)
	assert.Len(suite.T(), body.Results, 1)
	assert.Equal(suite.T(), uint64(7), body.Results[0].LoanID)
}

func (suite *OverdueHandlerTestSuite) TestListOverdueRequiresAuth() {
	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-emis", nil)

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (suite *OverdueHandlerTestSuite) TestListOverdueForbiddenForCustomers() {
	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-emis", nil)
	req.AddCookie(suite.authCookie(domain.CustomerRole))

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func (suite *OverdueHandlerTestSuite) TestSummarySuccess() {
	suite.mockOverdueService.MockSummaryResult = &dto.OverdueSummaryResponse{
		TotalCount: 3,
	}

	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-summary?search=LN-7", nil)
	req.AddCookie(suite.authCookie(domain.AdminRole))

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var body dto.OverdueSummaryResponse
	assert.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(suite.T(), int64(3), body.TotalCount)
}

func (suite *OverdueHandlerTestSuite) TestSummaryServiceError() {
	suite.mockOverdueService.MockError = assert.AnError

	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-summary", nil)
	req.AddCookie(suite.authCookie(domain.AgentRole))

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusInternalServerError, resp.StatusCode)
}

func (suite *OverdueHandlerTestSuite) TestExportReportDownload() {
	req := httptest.NewRequest(http.MethodGet, "/agent/overdue-report", nil)
	req.AddCookie(suite.authCookie(domain.AgentRole))

	resp, err := suite.app.Test(req, 10000)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get(fiber.HeaderContentType),
	)
	assert.Contains(suite.T(), resp.Header.Get(fiber.HeaderContentDisposition), "attachment")
}

func TestOverdueHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(OverdueHandlerTestSuite))
}
