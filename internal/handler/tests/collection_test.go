package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"

	"go.uber.org/zap"

	"loanadmin/internal/domain"
	"loanadmin/internal/dto"
	collection_handler "loanadmin/internal/handler/collection"
	"loanadmin/middleware"
	"loanadmin/pkg/common"
)

type CollectionHandlerTestSuite struct {
	suite.Suite
	app                   *fiber.App
	handler               *collection_handler.CollectionHandler
	mockCollectionService *MockCollectionService
	store                 *session.Store

	jwtSecret string
}

func (suite *CollectionHandlerTestSuite) SetupTest() {
	suite.mockCollectionService = &MockCollectionService{}
	suite.jwtSecret = "test-collection-secret-key"

	log := zap.NewNop()
	tracer := noop_trace.NewTracerProvider().Tracer("test-collection-handler-tracer")
	meter := noop_metric.NewMeterProvider().Meter("test-collection-handler-meter")

	suite.handler = collection_handler.NewCollectionHandler(
		suite.mockCollectionService,
		meter,
		tracer,
		log,
	)

	suite.store = session.New(session.Config{
		KeyLookup: "cookie:test-keylookup-collection",
	})

	app := fiber.New()

	jwtAuth := middleware.NewJWTAuthMiddleware(suite.jwtSecret)
	requireAgent := middleware.RequireRole(domain.AgentRole, domain.AdminRole, domain.SuperAdminRole)
	customCSRF := middleware.NewCustomCSRFMiddleware(suite.store)

	app.Get("/test/csrf-token", func(c *fiber.Ctx) error {
		sess, _ := suite.store.Get(c)
		token := sess.Get("csrf_token")
		if token == nil {
			newToken, _ := middleware.GenerateCSRFToken()
			sess.Set("csrf_token", newToken)
			sess.Save()
			token = newToken
		}
		return c.JSON(fiber.Map{"csrf_token": token})
	})

	agentGroup := app.Group("/agent", jwtAuth, requireAgent)
	{
		agentGroup.Post("/collect", customCSRF, suite.handler.RecordPayment)
	}

	suite.app = app
}

func (suite *CollectionHandlerTestSuite) getAuthCookieAndCsrfToken(role domain.Role) (string, []*http.Cookie) {
	claims := &domain.JwtCustomClaims{
		UserID: 3,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 1)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(suite.jwtSecret))
	assert.NoError(suite.T(), err)
	jwtCookie := &http.Cookie{Name: "private", Value: signedToken}

	csrfReq := httptest.NewRequest(http.MethodGet, "/test/csrf-token", nil)
	csrfReq.AddCookie(jwtCookie)
	csrfResp, err := suite.app.Test(csrfReq)
	assert.NoError(suite.T(), err)
	defer csrfResp.Body.Close()

	var csrfBody map[string]string
	json.NewDecoder(csrfResp.Body).Decode(&csrfBody)
	csrfToken := csrfBody["csrf_token"]
	assert.NotEmpty(suite.T(), csrfToken)

	var allCookies []*http.Cookie
	allCookies = append(allCookies, jwtCookie)
	allCookies = append(allCookies, csrfResp.Cookies()...)

	return csrfToken, allCookies
}

func (suite *CollectionHandlerTestSuite) TestRecordPayment() {
	csrfToken, authCookies := suite.getAuthCookieAndCsrfToken(domain.AgentRole)
	requestBodyMap := map[string]any{"emi_id": 42}

	suite.Run("Success - Receipt Returned", func() {
		suite.mockCollectionService.MockReceiptResult = &dto.PaymentReceiptResponse{
			ReceiptID: "b7f1c6a8-receipt",
			EmiID:     42,
			LoanCode:  "LN-20240110-ABCD1234",
			EmiNumber: 2,
			AmountDue: 550,
		}
		suite.mockCollectionService.MockError = nil

		req := createJSONRequestWithAuth(suite.T(), csrfToken, authCookies, http.MethodPost, "/agent/collect", requestBodyMap)
		resp, err := suite.app.Test(req)
		assert.NoError(suite.T(), err)
		defer resp.Body.Close()

		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

		var receipt dto.PaymentReceiptResponse
		assert.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&receipt))
		assert.Equal(suite.T(), "b7f1c6a8-receipt", receipt.ReceiptID)
		assert.Equal(suite.T(), uint64(42), receipt.EmiID)
		assert.Contains(suite.T(), suite.mockCollectionService.RecordedEmiIDs, uint64(42))
	})

	suite.Run("Failure - Installment Not Found", func() {
		suite.mockCollectionService.MockError = common.ErrEmiNotFound

		req := createJSONRequestWithAuth(suite.T(), csrfToken, authCookies, http.MethodPost, "/agent/collect", requestBodyMap)
		resp, err := suite.app.Test(req)
		assert.NoError(suite.T(), err)
		defer resp.Body.Close()

		assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	})

	suite.Run("Failure - Already Paid", func() {
		suite.mockCollectionService.MockError = common.ErrEmiAlreadyPaid

		req := createJSONRequestWithAuth(suite.T(), csrfToken, authCookies, http.MethodPost, "/agent/collect", requestBodyMap)
		resp, err := suite.app.Test(req)
		assert.NoError(suite.T(), err)
		defer resp.Body.Close()

		assert.Equal(suite.T(), http.StatusConflict, resp.StatusCode)
	})

	suite.Run("Failure - Missing EMI ID", func() {
		suite.mockCollectionService.MockError = nil

		req := createJSONRequestWithAuth(suite.T(), csrfToken, authCookies, http.MethodPost, "/agent/collect", map[string]any{})
		resp, err := suite.app.Test(req)
		assert.NoError(suite.T(), err)
		defer resp.Body.Close()

		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	})
}

func (suite *CollectionHandlerTestSuite) TestRecordPaymentRejectedWithoutCsrfToken() {
	_, authCookies := suite.getAuthCookieAndCsrfToken(domain.AgentRole)

	req := createJSONRequestWithAuth(suite.T(), "", authCookies, http.MethodPost, "/agent/collect", map[string]any{"emi_id": 42})
	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
	assert.Empty(suite.T(), suite.mockCollectionService.RecordedEmiIDs)
}

func (suite *CollectionHandlerTestSuite) TestRecordPaymentForbiddenForCustomers() {
	csrfToken, authCookies := suite.getAuthCookieAndCsrfToken(domain.CustomerRole)

	req := createJSONRequestWithAuth(suite.T(), csrfToken, authCookies, http.MethodPost, "/agent/collect", map[string]any{"emi_id": 42})
	resp, err := suite.app.Test(req)
	assert.NoError(suite.T(), err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
}

func createJSONRequestWithAuth(t *testing.T, csrfToken string, cookies []*http.Cookie, method, url string, body map[string]interface{}) *http.Request {
	jsonBody, err := json.Marshal(body)
	assert.NoError(t, err, "Failed to marshal request body")

	req := httptest.NewRequest(method, url, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestCollectionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionHandlerTestSuite))
}
