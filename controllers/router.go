package controllers

import (
	"bankcards/cache"
	"bankcards/middleware"
	"bankcards/services"
	"bankcards/utils"

	"github.com/gin-gonic/gin"
)

// Dependencies сервисы, из которых собирается HTTP API
type Dependencies struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Cards       *services.CardService
	Idempotency cache.IdempotencyStore
	Limiter     *utils.RateLimiter
	Metrics     *utils.Metrics
}

// NewRouter регистрирует маршруты API
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(middleware.Recovery())
	router.Use(middleware.CORSMiddleware())
	if deps.Limiter != nil {
		router.Use(middleware.RateLimit(deps.Limiter))
	}

	authController := NewAuthController(deps.Auth)
	cardController := NewCardController(deps.Cards)
	userController := NewUserController(deps.Users)
	adminController := NewAdminController(deps.Metrics)

	router.GET("/health", adminController.Health)

	// Публичные маршруты для аутентификации
	auth := router.Group("/api/auth")
	auth.POST("/signUp", authController.SignUp)
	auth.POST("/signIn", authController.SignIn)

	// Защищенные маршруты
	api := router.Group("/api")
	api.Use(middleware.Auth(deps.Auth, deps.Users))
	admin := middleware.AdminOnly()

	cards := api.Group("/cards")
	cards.GET("/my", cardController.ListMine)
	cards.GET("/:id", cardController.Get)
	cards.GET("/:id/balance", cardController.GetBalance)
	cards.POST("/:id/block", cardController.Block)
	if deps.Idempotency != nil {
		cards.POST("/transfer", middleware.Idempotency(deps.Idempotency), cardController.Transfer)
	} else {
		cards.POST("/transfer", cardController.Transfer)
	}

	cards.POST("", admin, cardController.Create)
	cards.GET("", admin, cardController.ListAll)
	cards.PATCH("/:id", admin, cardController.UpdateStatus)
	cards.PUT("/:id/balance", admin, cardController.SetBalance)
	cards.DELETE("/:id", admin, cardController.Delete)

	users := api.Group("/users")
	users.POST("/:id/change-password", userController.ChangePassword)
	users.GET("", admin, userController.List)
	users.GET("/:id", admin, userController.Get)
	users.PUT("/:id", admin, userController.Update)
	users.DELETE("/:id", admin, userController.Delete)

	api.GET("/admin/metrics", admin, adminController.Metrics)

	return router
}
