package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/controllers"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
)

// RegisterEventRoutes mounts the event, RSVP and announcement endpoints
func RegisterEventRoutes(g *echo.Group, db *mongo.Client, svc *services.NotificationService) {
	ec := controllers.NewEventController(db, svc)

	events := g.Group("/events", middleware.JWTMiddleware())
	events.GET("", ec.ListEvents)
	events.GET("/:id", ec.GetEvent)
	events.GET("/:id/checkin-qr", ec.CheckinQRCode)
	events.POST("/:id/rsvp", ec.RSVP)

	organizer := requireRole("organizer", "admin")
	events.POST("", ec.CreateEvent, organizer)
	events.POST("/:id/publish", ec.PublishEvent, organizer)
	events.POST("/:id/announce", ec.Announce, organizer)
	events.POST("/:id/cover", ec.UploadCover, organizer)
}
