package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// OrganizationController manages the tenant organizations that own events
type OrganizationController struct {
	db *mongo.Client
}

// NewOrganizationController creates a new organization controller
func NewOrganizationController(db *mongo.Client) *OrganizationController {
	return &OrganizationController{db: db}
}

// CreateOrganization creates a new organization owned by the caller
func (oc *OrganizationController) CreateOrganization(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	ownerID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var req models.CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := config.GetCollection(oc.db, "organizations")

	count, err := collection.CountDocuments(ctx, bson.M{"slug": req.Slug})
	if err != nil {
		log.Printf("Error checking slug: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Slug already taken",
		})
	}

	now := time.Now()
	org := models.Organization{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		ContactEmail: req.ContactEmail,
		OwnerID:      ownerID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := collection.InsertOne(ctx, org); err != nil {
		log.Printf("Error inserting organization: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create organization",
		})
	}

	// The creator becomes an organizer of their own org
	config.GetCollection(oc.db, "users").UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$set": bson.M{"organizationId": org.ID, "role": "organizer", "updatedAt": now}},
	)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Organization created",
		Data:    org,
	})
}

// GetOrganization returns one organization by ID
func (oc *OrganizationController) GetOrganization(c echo.Context) error {
	orgID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid organization ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var org models.Organization
	err = config.GetCollection(oc.db, "organizations").FindOne(ctx, bson.M{"_id": orgID}).Decode(&org)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Organization not found",
			})
		}
		log.Printf("Error finding organization: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organization retrieved",
		Data:    org,
	})
}

// ListOrganizations returns all active organizations
func (oc *OrganizationController) ListOrganizations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.GetCollection(oc.db, "organizations").Find(ctx, bson.M{"isActive": true})
	if err != nil {
		log.Printf("Error listing organizations: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	defer cursor.Close(ctx)

	var orgs []models.Organization
	if err := cursor.All(ctx, &orgs); err != nil {
		log.Printf("Error decoding organizations: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organizations retrieved",
		Data:    orgs,
	})
}

// AddMember attaches a user to the caller's organization with a role
func (oc *OrganizationController) AddMember(c echo.Context) error {
	orgID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid organization ID",
		})
	}

	var req models.AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
		})
	}

	memberID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = config.GetCollection(oc.db, "organizations").FindOne(ctx, bson.M{"_id": orgID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Organization not found",
			})
		}
		log.Printf("Error finding organization: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	result, err := config.GetCollection(oc.db, "users").UpdateOne(ctx,
		bson.M{"_id": memberID},
		bson.M{"$set": bson.M{"organizationId": orgID, "role": req.Role, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("Error adding member: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to add member",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Member added",
	})
}
