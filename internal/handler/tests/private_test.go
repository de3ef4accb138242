package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"

	"go.uber.org/zap"

	"loanadmin/internal/dto"
	private_handler "loanadmin/internal/handler/private"
	"loanadmin/pkg/common"
)

type PrivateHandlerTestSuite struct {
	suite.Suite
	app                *fiber.App
	handler            *private_handler.PrivateHandler
	mockPrivateService *MockPrivateService
}

func (suite *PrivateHandlerTestSuite) SetupTest() {
	suite.mockPrivateService = &MockPrivateService{}

	log := zap.NewNop()
	tracer := noop_trace.NewTracerProvider().Tracer("test-private-handler-tracer")
	meter := noop_metric.NewMeterProvider().Meter("test-private-handler-meter")

	suite.handler = private_handler.NewPrivateHandler(
		suite.mockPrivateService,
		meter,
		tracer,
		log,
	)

	app := fiber.New()
	app.Post("/auth/login", suite.handler.Login)
	app.Post("/auth/logout", suite.handler.Logout)

	suite.app = app
}

func (suite *PrivateHandlerTestSuite) postJSON(url string, body map[string]any) *http.Response {
	jsonBody, err := json.Marshal(body)
	assert.NoError(suite.T(), err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	return resp
}

func (suite *PrivateHandlerTestSuite) TestLoginSuccessSetsCookie() {
	suite.mockPrivateService.MockLoginResult = &dto.LoginResponse{Token: "signed-jwt"}

	resp := suite.postJSON("/auth/login", map[string]any{
		"mobile":   "0800000001",
		"password": "changeme",
	})
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var body dto.LoginResponse
	assert.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(suite.T(), "signed-jwt", body.Token)

	var authCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "private" {
			authCookie = c
		}
	}
	if assert.NotNil(suite.T(), authCookie) {
		assert.Equal(suite.T(), "signed-jwt", authCookie.Value)
		assert.True(suite.T(), authCookie.HttpOnly)
	}
}

func (suite *PrivateHandlerTestSuite) TestLoginInvalidCredentials() {
	suite.mockPrivateService.MockError = common.ErrInvalidCredentials

	resp := suite.postJSON("/auth/login", map[string]any{
		"mobile":   "0800000001",
		"password": "wrong",
	})
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (suite *PrivateHandlerTestSuite) TestLoginValidationFailure() {
	resp := suite.postJSON("/auth/login", map[string]any{"mobile": "0800000001"})
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
}

func (suite *PrivateHandlerTestSuite) TestLogoutExpiresCookie() {
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var cleared *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "private" {
			cleared = c
		}
	}
	if assert.NotNil(suite.T(), cleared) {
		assert.Empty(suite.T(), cleared.Value)
	}
}

func TestPrivateHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(PrivateHandlerTestSuite))
}
