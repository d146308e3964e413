package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/controllers"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
)

// RegisterOrganizationRoutes mounts the organization endpoints
func RegisterOrganizationRoutes(g *echo.Group, db *mongo.Client) {
	oc := controllers.NewOrganizationController(db)

	orgs := g.Group("/organizations", middleware.JWTMiddleware())
	orgs.POST("", oc.CreateOrganization)
	orgs.GET("", oc.ListOrganizations)
	orgs.GET("/:id", oc.GetOrganization)
	orgs.POST("/:id/members", oc.AddMember, requireRole("organizer", "admin"))
}
