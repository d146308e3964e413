package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
	"github.com/ThinkModa/pbr-mvp-sub002/repositories"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
	"github.com/ThinkModa/pbr-mvp-sub002/websocket"
)

// SetupRoutes wires every controller under /api and the websocket endpoint
func SetupRoutes(e *echo.Echo, db *mongo.Client, svc *services.NotificationService, hub *websocket.Hub) {
	api := e.Group("/api")

	RegisterAuthRoutes(api, db)
	RegisterOrganizationRoutes(api, db)
	RegisterEventRoutes(api, db, svc)
	RegisterChatRoutes(api, db, svc, hub)
	RegisterNotificationRoutes(api,
		repositories.NewNotificationRepository(db),
		repositories.NewTokenRepository(db),
		svc)

	// WebSocket clients may connect with ?token=<jwt> or authenticate
	// in-band with an AUTH message after connecting
	e.GET("/ws", func(c echo.Context) error {
		userID := primitive.NilObjectID
		if tokenString := c.QueryParam("token"); tokenString != "" {
			claims, err := middleware.ParseToken(tokenString)
			if err == nil {
				if id, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
					userID = id
				}
			}
		}
		return websocket.HandleWebSocket(c, hub, userID)
	})
}

// requireRole gates a route group to the listed roles
func requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := middleware.ExtractRole(c)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Insufficient permissions",
			})
		}
	}
}
