package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/controllers"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
)

// RegisterAuthRoutes mounts signup, login and profile endpoints
func RegisterAuthRoutes(g *echo.Group, db *mongo.Client) {
	ac := controllers.NewAuthController(db)

	auth := g.Group("/auth")
	auth.POST("/signup", ac.Signup)
	auth.POST("/login", ac.Login)
	auth.POST("/refresh", ac.RefreshToken)

	me := g.Group("/me", middleware.JWTMiddleware())
	me.GET("", ac.Me)
	me.PATCH("/notification-prefs", ac.UpdateNotificationPrefs)
}
