// routes/routes.go
package routes

import (
	"memorybox/config"
	"memorybox/controllers"
	"memorybox/middleware"
	"memorybox/repositories"
	"memorybox/services"
	"memorybox/utils"
	"memorybox/websocket"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRoutes initializes all application routes
func SetupRoutes(cfg *config.Config, messagingCfg *config.MessagingConfig, db *mongo.Database, redis *redis.Client, hub *websocket.Hub) *gin.Engine {
	router := gin.New()

	// Initialize repositories
	repos := initializeRepositories(db)

	// Initialize services
	svcs := initializeServices(messagingCfg, repos, hub)

	// Initialize middleware and controllers
	authMiddleware := middleware.NewAuthMiddleware(utils.NewJWTService(cfg.JWTSecret), repos.User)
	ctrls := initializeControllers(svcs, redis, hub, authMiddleware)

	// Global middleware
	setupGlobalMiddleware(router, cfg, redis)

	// Route groups
	setupPublicRoutes(router, ctrls, redis)
	setupUserRoutes(router, ctrls, authMiddleware)
	setupAdminRoutes(router, ctrls, authMiddleware, redis)

	return router
}

// Repositories initialization
type Repositories struct {
	Template     *repositories.TemplateRepository
	Campaign     *repositories.CampaignRepository
	Message      *repositories.MessageRepository
	Notification *repositories.NotificationRepository
	User         *repositories.UserRepository
}

func initializeRepositories(db *mongo.Database) *Repositories {
	return &Repositories{
		Template:     repositories.NewTemplateRepository(db),
		Campaign:     repositories.NewCampaignRepository(db),
		Message:      repositories.NewMessageRepository(db),
		Notification: repositories.NewNotificationRepository(db),
		User:         repositories.NewUserRepository(db),
	}
}

// Services initialization
type Services struct {
	Template  *services.TemplateService
	Notify    *services.NotifyService
	InApp     *services.InAppService
	Campaign  *services.CampaignService
	Analytics *services.AnalyticsService
	Webhook   *services.WebhookService
}

func initializeServices(messagingCfg *config.MessagingConfig, repos *Repositories, hub *websocket.Hub) *Services {
	validator := utils.NewValidationService()

	templateService := services.NewTemplateService(repos.Template, messagingCfg, validator)
	inAppService := services.NewInAppService(messagingCfg, repos.Notification, repos.User, hub)
	notifyService := services.NewNotifyService(
		messagingCfg,
		repos.Message,
		repos.Campaign,
		services.NewSendGridEmailService(messagingCfg),
		services.NewTwilioSMSService(messagingCfg),
		inAppService,
	)

	return &Services{
		Template:  templateService,
		Notify:    notifyService,
		InApp:     inAppService,
		Campaign:  services.NewCampaignService(repos.Campaign, repos.User, templateService, notifyService, validator),
		Analytics: services.NewAnalyticsService(repos.Message, repos.Campaign),
		Webhook:   services.NewWebhookService(repos.Message, repos.Campaign),
	}
}

// Controllers initialization
type Controllers struct {
	Messaging    *controllers.MessagingController
	Template     *controllers.TemplateController
	Campaign     *controllers.CampaignController
	Analytics    *controllers.AnalyticsController
	Webhook      *controllers.WebhookController
	Notification *controllers.NotificationController
	WebSocket    *controllers.WebSocketController
	Health       *controllers.HealthController
}

func initializeControllers(svcs *Services, redis *redis.Client, hub *websocket.Hub, authMiddleware *middleware.AuthMiddleware) *Controllers {
	return &Controllers{
		Messaging:    controllers.NewMessagingController(svcs.Notify, svcs.Template),
		Template:     controllers.NewTemplateController(svcs.Template),
		Campaign:     controllers.NewCampaignController(svcs.Campaign),
		Analytics:    controllers.NewAnalyticsController(svcs.Analytics),
		Webhook:      controllers.NewWebhookController(svcs.Webhook),
		Notification: controllers.NewNotificationController(svcs.InApp),
		WebSocket:    controllers.NewWebSocketController(hub, authMiddleware),
		Health:       controllers.NewHealthController(redis),
	}
}

// Global middleware setup
func setupGlobalMiddleware(router *gin.Engine, cfg *config.Config, redis *redis.Client) {
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.DefaultLoggerMiddleware())
	router.Use(middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger()).Handle())
	router.Use(middleware.CORSMiddleware(cfg.Environment))
	router.Use(middleware.RateLimitMiddleware(redis, cfg.Environment))
}

// Public routes (no authentication required)
func setupPublicRoutes(router *gin.Engine, ctrls *Controllers, redis *redis.Client) {
	router.GET("/health", ctrls.Health.HealthCheck)

	// Open-tracking pixel; must stay public for email clients
	router.GET("/t/o/:token", ctrls.Webhook.OpenPixel)

	// Provider callbacks
	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimit(redis))
	{
		webhooks.POST("/twilio/status", ctrls.Webhook.TwilioStatus)
		webhooks.POST("/sendgrid/events", ctrls.Webhook.SendGridEvents)
	}
}

// User routes (any authenticated user)
func setupUserRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware) {
	router.GET("/ws", ctrls.WebSocket.HandleWebSocket)

	api := router.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", ctrls.Notification.GetNotifications)
			notifications.GET("/unread-count", ctrls.Notification.GetUnreadCount)
			notifications.POST("/mark-read", ctrls.Notification.MarkRead)
			notifications.POST("/mark-all-read", ctrls.Notification.MarkAllRead)
		}
	}
}

// Admin routes (messaging, templates, campaigns, analytics)
func setupAdminRoutes(router *gin.Engine, ctrls *Controllers, authMiddleware *middleware.AuthMiddleware, redis *redis.Client) {
	admin := router.Group("/api/v1")
	admin.Use(authMiddleware.RequireAuth())
	admin.Use(authMiddleware.RequireAdmin())
	{
		messaging := admin.Group("/messaging")
		{
			messaging.POST("/notify", middleware.NotifyRateLimit(redis), ctrls.Messaging.Notify)
			messaging.GET("/notify", ctrls.Messaging.Status)
			messaging.GET("/messages", ctrls.Messaging.GetMessages)
			messaging.POST("/messages/:id/retry", ctrls.Messaging.RetryMessage)
		}

		templates := admin.Group("/templates")
		{
			templates.POST("", ctrls.Template.CreateTemplate)
			templates.GET("", ctrls.Template.GetTemplates)
			templates.POST("/validate", ctrls.Template.ValidateTemplate)
			templates.GET("/:id", ctrls.Template.GetTemplate)
			templates.PUT("/:id", ctrls.Template.UpdateTemplate)
			templates.DELETE("/:id", ctrls.Template.DeleteTemplate)
			templates.POST("/:id/preview", ctrls.Template.PreviewTemplate)
			templates.POST("/:id/duplicate", ctrls.Template.DuplicateTemplate)
		}

		campaigns := admin.Group("/campaigns")
		{
			campaigns.POST("", ctrls.Campaign.CreateCampaign)
			campaigns.GET("", ctrls.Campaign.GetCampaigns)
			campaigns.GET("/:id", ctrls.Campaign.GetCampaign)
			campaigns.DELETE("/:id", ctrls.Campaign.DeleteCampaign)
			campaigns.POST("/:id/send", middleware.NotifyRateLimit(redis), ctrls.Campaign.SendCampaign)
			campaigns.POST("/:id/toggle", ctrls.Campaign.ToggleCampaign)
		}

		analytics := admin.Group("/analytics")
		{
			analytics.GET("/overview", ctrls.Analytics.GetOverview)
			analytics.GET("/trend", ctrls.Analytics.GetTrend)
			analytics.GET("/campaigns", ctrls.Analytics.GetCampaignsAnalytics)
			analytics.GET("/campaigns/:id", ctrls.Analytics.GetCampaignAnalytics)
			analytics.GET("/channels", ctrls.Analytics.GetChannelBreakdown)
		}
	}
}
