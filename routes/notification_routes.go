package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ThinkModa/pbr-mvp-sub002/controllers"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/repositories"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
)

// RegisterNotificationRoutes mounts the token registry, inbox and admin
// send/sweep endpoints
func RegisterNotificationRoutes(g *echo.Group, inbox *repositories.NotificationRepository, tokens *repositories.TokenRepository, svc *services.NotificationService) {
	nc := controllers.NewNotificationController(inbox, tokens, svc)

	n := g.Group("/notifications", middleware.JWTMiddleware())
	n.POST("/tokens", nc.RegisterToken)
	n.DELETE("/tokens", nc.RemoveToken)
	n.GET("", nc.ListMyNotifications)
	n.POST("/:id/read", nc.MarkRead)
	n.POST("/read-all", nc.MarkAllRead)
	n.GET("/unread-count", nc.UnreadCount)

	admin := requireRole("admin")
	n.POST("/send", nc.SendDirect, admin)
	n.POST("/process", nc.ProcessPending, admin)
}
