package router

import (
	"context"
	"log/slog"

	"traffichub/config"
	"traffichub/internal/changefeed"
	"traffichub/internal/handler"
	"traffichub/internal/metrics"
	"traffichub/internal/middleware"
	"traffichub/internal/readstate"
	"traffichub/internal/repository"
	"traffichub/internal/service"
	"traffichub/internal/unread"
	"traffichub/internal/ws"
	"traffichub/pkg/whatsapp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server is the HTTP surface plus the pieces the change-feed bridge drives.
type Server struct {
	Engine     *gin.Engine
	Aggregates *unread.Aggregator
	Hub        *ws.Hub
}

// Setup wires repositories, services and handlers. feed may be nil, in which
// case writes publish nothing and aggregates are only invalidated by the
// read-state tracker.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, feed changefeed.Publisher, log *slog.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	limiter := middleware.NewInMemoryRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limit := middleware.RateLimit(limiter)

	// Repositories
	profileRepo := repository.NewProfileRepository(db)
	clientRepo := repository.NewClientRepository(db, feed, log)
	ticketRepo := repository.NewTicketRepository(db, feed, log)
	messageRepo := repository.NewMessageRepository(db, feed, log)
	notificationRepo := repository.NewNotificationRepository(db, feed, log)
	readRepo := repository.NewReadStateRepository(db, feed, log)

	hub := ws.NewHub()
	agg := unread.NewAggregator(readRepo, log)
	tracker := readstate.NewTracker(readRepo, agg, log)

	// Services
	authSvc := service.NewAuthService(cfg, profileRepo)
	notifSvc := service.NewNotificationService(notificationRepo, profileRepo, log)
	clientSvc := service.NewClientService(clientRepo)
	ticketSvc := service.NewTicketService(clientRepo, ticketRepo, profileRepo, notifSvc, log)
	messageSvc := service.NewMessageService(clientRepo, ticketRepo, messageRepo, profileRepo, notifSvc, whatsapp.New(cfg.Webhook), log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, log)
	profileHandler := handler.NewProfileHandler(profileRepo, log)
	clientHandler := handler.NewClientHandler(clientSvc, messageSvc, profileHandler, log)
	ticketHandler := handler.NewTicketHandler(ticketSvc, messageSvc, profileHandler, log)
	directHandler := handler.NewDirectHandler(messageSvc, profileHandler, log)
	readHandler := handler.NewReadStateHandler(tracker, agg, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, agg, log)
	webhookHandler := handler.NewWebhookHandler(messageSvc, log)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/healthz", handler.Health(db))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth", limit)
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.PATCH("/change-password", authMw, authHandler.ChangePassword)
		}

		api.POST("/webhooks/whatsapp", middleware.SharedSecret(handler.WebhookSecretHeader, cfg.Webhook.InboundSecret), webhookHandler.WhatsAppInbound)

		p := api.Group("", authMw, limit)
		{
			p.GET("/profiles", profileHandler.List)
			p.GET("/me", profileHandler.Me)
			p.PATCH("/me/status", profileHandler.SetStatus)

			clients := p.Group("/clients")
			{
				clients.GET("", clientHandler.List)
				clients.POST("", clientHandler.Create)
				clients.GET("/:id", clientHandler.Get)
				clients.DELETE("/:id", clientHandler.Delete)
				clients.GET("/:id/messages", clientHandler.ListMessages)
				clients.POST("/:id/messages", clientHandler.SendMessage)
				clients.POST("/:id/read", readHandler.MarkClientRead)
			}

			tickets := p.Group("/tickets")
			{
				tickets.GET("", ticketHandler.List)
				tickets.POST("", ticketHandler.Create)
				tickets.GET("/new-count", ticketHandler.NewCount)
				tickets.GET("/:id", ticketHandler.Get)
				tickets.PATCH("/:id", ticketHandler.Update)
				tickets.DELETE("/:id", ticketHandler.Delete)
				tickets.GET("/:id/messages", ticketHandler.ListMessages)
				tickets.POST("/:id/messages", ticketHandler.SendMessage)
				tickets.GET("/:id/messages/last", ticketHandler.LastMessage)
				tickets.POST("/:id/read", readHandler.MarkTicketRead)
			}

			direct := p.Group("/direct/:partner_id")
			{
				direct.GET("/messages", directHandler.ListMessages)
				direct.POST("/messages", directHandler.SendMessage)
				direct.POST("/read", readHandler.MarkDirectRead)
			}

			notifications := p.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.GET("/unread-count", readHandler.NotificationUnreadCount)
				notifications.POST("/read", readHandler.MarkNotificationsRead)
				notifications.POST("/read-context", readHandler.MarkNotificationsContextRead)
			}

			unreadGroup := p.Group("/unread")
			{
				unreadGroup.GET("/clients/:id", readHandler.ClientUnread)
				unreadGroup.GET("/clients/:id/tickets", readHandler.ClientTicketsUnread)
				unreadGroup.GET("/tickets/:id", readHandler.TicketUnread)
				unreadGroup.GET("/direct/:partner_id", readHandler.DirectUnread)
			}
		}
	}

	r.GET("/ws/realtime", ws.UpgradeRealtimeWS(&cfg.JWT, hub, log))

	return &Server{Engine: r, Aggregates: agg, Hub: hub}
}
