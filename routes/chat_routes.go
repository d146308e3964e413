package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/controllers"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
	"github.com/ThinkModa/pbr-mvp-sub002/websocket"
)

// RegisterChatRoutes mounts the thread and message endpoints
func RegisterChatRoutes(g *echo.Group, db *mongo.Client, svc *services.NotificationService, hub *websocket.Hub) {
	cc := controllers.NewChatController(db, svc, hub)

	threads := g.Group("/threads", middleware.JWTMiddleware())
	threads.POST("", cc.CreateThread)
	threads.GET("", cc.ListMyThreads)
	threads.POST("/:id/join", cc.JoinThread)
	threads.POST("/:id/leave", cc.LeaveThread)
	threads.POST("/:id/messages", cc.PostMessage)
	threads.GET("/:id/messages", cc.ListMessages)
}
