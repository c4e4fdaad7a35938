package main

import (
	"fmt"
	"net/http"
	"os"

	"captable/internal/config"
	"captable/internal/database"
	"captable/internal/handlers"
	"captable/internal/logger"
	"captable/internal/middleware"
	"captable/internal/refresher"
	"captable/internal/services"
	"captable/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "captable/internal/docs" // Import swagger docs
)

// @title           Captable API
// @version         1.0
// @description     Captable is a cap-table management backend for startups: shareholders, share classes, funding rounds, and a convertible-instrument engine with interest accrual and conversion scenarios.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	companyService := services.NewCompanyService(db)
	shareholderService := services.NewShareholderService(db, companyService)
	shareClassService := services.NewShareClassService(db, companyService)
	fundingRoundService := services.NewFundingRoundService(db, companyService)
	capTableService := services.NewCapTableService(db, companyService)
	convertibleService := services.NewConvertibleService(db, companyService, capTableService)

	// Background interest sweep: marks matured instruments and refreshes
	// the persisted accrued-interest snapshots.
	interestRefresher := refresher.New(convertibleService, appConfig.RefreshInterval, appConfig.RefreshChunkSize)
	interestRefresher.Start()
	defer interestRefresher.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	companyHandler := handlers.NewCompanyHandler(companyService, auditService)
	shareholderHandler := handlers.NewShareholderHandler(shareholderService, auditService)
	shareClassHandler := handlers.NewShareClassHandler(shareClassService, auditService)
	fundingRoundHandler := handlers.NewFundingRoundHandler(fundingRoundService, auditService)
	capTableHandler := handlers.NewCapTableHandler(capTableService)
	convertibleHandler := handlers.NewConvertibleHandler(convertibleService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Company routes
	companies := protected.Group("/companies")
	companies.POST("", companyHandler.CreateCompany)
	companies.GET("", companyHandler.GetCompanies)
	companies.GET("/:id", companyHandler.GetCompany)
	companies.PUT("/:id", companyHandler.UpdateCompany)

	// Shareholder routes
	companies.POST("/:id/shareholders", shareholderHandler.CreateShareholder)
	companies.GET("/:id/shareholders", shareholderHandler.GetShareholders)
	companies.GET("/:id/shareholders/:shareholderId", shareholderHandler.GetShareholder)
	companies.PUT("/:id/shareholders/:shareholderId", shareholderHandler.UpdateShareholder)

	// Share class routes
	companies.POST("/:id/share-classes", shareClassHandler.CreateShareClass)
	companies.GET("/:id/share-classes", shareClassHandler.GetShareClasses)
	companies.GET("/:id/share-classes/:shareClassId", shareClassHandler.GetShareClass)
	companies.PUT("/:id/share-classes/:shareClassId/authorized", shareClassHandler.UpdateAuthorizedShares)

	// Funding round routes
	companies.POST("/:id/funding-rounds", fundingRoundHandler.CreateFundingRound)
	companies.GET("/:id/funding-rounds", fundingRoundHandler.GetFundingRounds)
	companies.GET("/:id/funding-rounds/:roundId", fundingRoundHandler.GetFundingRound)
	companies.POST("/:id/funding-rounds/:roundId/close", fundingRoundHandler.CloseFundingRound)

	// Convertible instrument routes
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

	// Cap table routes
	companies.GET("/:id/cap-table", capTableHandler.GetCapTable)
	companies.POST("/:id/cap-table/recalculate", capTableHandler.Recalculate)
	companies.GET("/:id/cap-table/snapshots", capTableHandler.GetSnapshots)

	log.Infof("Starting Captable backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
