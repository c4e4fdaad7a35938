package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"captable/internal/handlers"
	"captable/internal/logger"
	"captable/internal/middleware"
	"captable/internal/models"
	"captable/internal/services"
	"captable/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Company{},
		&models.Shareholder{},
		&models.ShareClass{},
		&models.Shareholding{},
		&models.FundingRound{},
		&models.ConvertibleInstrument{},
		&models.ShareIssuance{},
		&models.CapTableSnapshot{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	companyService := services.NewCompanyService(db)
	shareholderService := services.NewShareholderService(db, companyService)
	shareClassService := services.NewShareClassService(db, companyService)
	fundingRoundService := services.NewFundingRoundService(db, companyService)
	capTableService := services.NewCapTableService(db, companyService)
	convertibleService := services.NewConvertibleService(db, companyService, capTableService)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	companyHandler := handlers.NewCompanyHandler(companyService, auditService)
	shareholderHandler := handlers.NewShareholderHandler(shareholderService, auditService)
	shareClassHandler := handlers.NewShareClassHandler(shareClassService, auditService)
	fundingRoundHandler := handlers.NewFundingRoundHandler(fundingRoundService, auditService)
	capTableHandler := handlers.NewCapTableHandler(capTableService)
	convertibleHandler := handlers.NewConvertibleHandler(convertibleService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	companies := protected.Group("/companies")
	companies.POST("", companyHandler.CreateCompany)
	companies.GET("", companyHandler.GetCompanies)
	companies.GET("/:id", companyHandler.GetCompany)
	companies.PUT("/:id", companyHandler.UpdateCompany)

	companies.POST("/:id/shareholders", shareholderHandler.CreateShareholder)
	companies.GET("/:id/shareholders", shareholderHandler.GetShareholders)
	companies.GET("/:id/shareholders/:shareholderId", shareholderHandler.GetShareholder)
	companies.PUT("/:id/shareholders/:shareholderId", shareholderHandler.UpdateShareholder)

	companies.POST("/:id/share-classes", shareClassHandler.CreateShareClass)
	companies.GET("/:id/share-classes", shareClassHandler.GetShareClasses)
	companies.GET("/:id/share-classes/:shareClassId", shareClassHandler.GetShareClass)
	companies.PUT("/:id/share-classes/:shareClassId/authorized", shareClassHandler.UpdateAuthorizedShares)

	companies.POST("/:id/funding-rounds", fundingRoundHandler.CreateFundingRound)
	companies.GET("/:id/funding-rounds", fundingRoundHandler.GetFundingRounds)
	companies.GET("/:id/funding-rounds/:roundId", fundingRoundHandler.GetFundingRound)
	companies.POST("/:id/funding-rounds/:roundId/close", fundingRoundHandler.CloseFundingRound)

	companies.POST("/:id/convertibles", convertibleHandler.CreateInstrument)
	companies.GET("/:id/convertibles", convertibleHandler.GetInstruments)
	companies.GET("/:id/convertibles/:instrumentId", convertibleHandler.GetInstrument)
	companies.PUT("/:id/convertibles/:instrumentId", convertibleHandler.UpdateInstrument)
	companies.GET("/:id/convertibles/:instrumentId/interest", convertibleHandler.GetInterestBreakdown)
	companies.POST("/:id/convertibles/:instrumentId/scenarios", convertibleHandler.GetScenarios)
	companies.GET("/:id/convertibles/:instrumentId/scenarios", convertibleHandler.GetScenarios)
	companies.POST("/:id/convertibles/:instrumentId/redeem", convertibleHandler.RedeemInstrument)
	companies.POST("/:id/convertibles/:instrumentId/cancel", convertibleHandler.CancelInstrument)
	companies.POST("/:id/convertibles/:instrumentId/convert", convertibleHandler.ConvertInstrument)

	companies.GET("/:id/cap-table", capTableHandler.GetCapTable)
	companies.POST("/:id/cap-table/recalculate", capTableHandler.Recalculate)
	companies.GET("/:id/cap-table/snapshots", capTableHandler.GetSnapshots)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createCompany creates a company and returns its ID.
func (app *testApp) createCompany(t *testing.T, token, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/companies", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create company failed: %d %s", rec.Code, rec.Body.String())
	}
	company := parseJSON(t, rec)["company"].(map[string]interface{})
	return company["id"].(string)
}

// createShareholder creates a shareholder in a company and returns its ID.
func (app *testApp) createShareholder(t *testing.T, token, companyID, name string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/companies/"+companyID+"/shareholders",
		fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create shareholder failed: %d %s", rec.Code, rec.Body.String())
	}
	shareholder := parseJSON(t, rec)["shareholder"].(map[string]interface{})
	return shareholder["id"].(string)
}

// createShareClass creates a share class and returns its ID.
func (app *testApp) createShareClass(t *testing.T, token, companyID, name, authorized string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/companies/"+companyID+"/share-classes",
		fmt.Sprintf(`{"name":%q,"total_authorized":%q}`, name, authorized), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create share class failed: %d %s", rec.Code, rec.Body.String())
	}
	shareClass := parseJSON(t, rec)["share_class"].(map[string]interface{})
	return shareClass["id"].(string)
}

// createFundingRound creates a funding round and returns its ID.
func (app *testApp) createFundingRound(t *testing.T, token, companyID, name, target, preMoney string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/companies/"+companyID+"/funding-rounds",
		fmt.Sprintf(`{"name":%q,"target_amount":%q,"pre_money_valuation":%q}`, name, target, preMoney), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create funding round failed: %d %s", rec.Code, rec.Body.String())
	}
	round := parseJSON(t, rec)["funding_round"].(map[string]interface{})
	return round["id"].(string)
}
