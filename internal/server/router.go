// Package server wires handlers, middleware and documentation into the HTTP
// router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "finwise/internal/docs" // Import swagger docs
	"finwise/internal/handlers"
	"finwise/internal/identity"
	"finwise/internal/middleware"
	"finwise/internal/services"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Summary      services.SummaryServicer
	Audit        services.AuditServicer
	Verifier     identity.Verifier
	CORSOrigin   string
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Audit, deps.Verifier)
	categoryHandler := handlers.NewCategoryHandler(deps.Categories, deps.Audit)
	transactionHandler := handlers.NewTransactionHandler(deps.Transactions, deps.Summary, deps.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.CORS(deps.CORSOrigin))
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/google", authHandler.GoogleLogin)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile/theme", authHandler.UpdateTheme)
	protected.DELETE("/profile", authHandler.DeleteAccount)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/summary", transactionHandler.GetSummary)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	return router
}
