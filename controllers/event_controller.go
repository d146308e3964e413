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
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
	"github.com/ThinkModa/pbr-mvp-sub002/utils"
)

// EventController manages events, activities, RSVPs and organizer broadcasts
type EventController struct {
	db  *mongo.Client
	svc *services.NotificationService
}

// NewEventController creates a new event controller
func NewEventController(db *mongo.Client, svc *services.NotificationService) *EventController {
	return &EventController{db: db, svc: svc}
}

// CreateEvent creates an unpublished event with its nested activities
func (ec *EventController) CreateEvent(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	creatorID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	var req models.CreateEventRequest
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

	// Events belong to the creator's organization
	var creator models.User
	if err := config.GetCollection(ec.db, "users").FindOne(ctx, bson.M{"_id": creatorID}).Decode(&creator); err != nil {
		log.Printf("Error finding creator: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if creator.OrganizationID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You must belong to an organization to create events",
		})
	}

	now := time.Now()
	activities := make([]models.Activity, 0, len(req.Activities))
	for _, a := range req.Activities {
		activities = append(activities, models.Activity{
			ID:          primitive.NewObjectID(),
			Title:       a.Title,
			Description: a.Description,
			StartsAt:    a.StartsAt,
			EndsAt:      a.EndsAt,
			Capacity:    a.Capacity,
		})
	}

	event := models.Event{
		ID:             primitive.NewObjectID(),
		OrganizationID: *creator.OrganizationID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Capacity:       req.Capacity,
		Activities:     activities,
		IsPublished:    false,
		CreatedBy:      creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := config.GetCollection(ec.db, "events").InsertOne(ctx, event); err != nil {
		log.Printf("Error inserting event: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create event",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Event created",
		Data:    event,
	})
}

// GetEvent returns one event by ID
func (ec *EventController) GetEvent(c echo.Context) error {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var event models.Event
	err = config.GetCollection(ec.db, "events").FindOne(ctx, bson.M{"_id": eventID}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Event not found",
			})
		}
		log.Printf("Error finding event: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Event retrieved",
		Data:    event,
	})
}

// ListEvents returns published events, soonest first. Pass ?all=true as an
// organizer to include drafts.
func (ec *EventController) ListEvents(c echo.Context) error {
	filter := bson.M{"isPublished": true}
	if c.QueryParam("all") == "true" {
		role := middleware.ExtractRole(c)
		if role == "organizer" || role == "admin" {
			filter = bson.M{}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "startsAt", Value: 1}})
	cursor, err := config.GetCollection(ec.db, "events").Find(ctx, filter, opts)
	if err != nil {
		log.Printf("Error listing events: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		log.Printf("Error decoding events: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Events retrieved",
		Data:    events,
	})
}

// PublishEvent makes an event visible to members
func (ec *EventController) PublishEvent(c echo.Context) error {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(ec.db, "events").UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"isPublished": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("Error publishing event: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to publish event",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Event not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Event published",
	})
}

// RSVP records or updates the caller's attendance. A full event puts new
// attendees on the waitlist instead of rejecting them.
func (ec *EventController) RSVP(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	attendeeID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	var req models.RSVPRequest
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

	var event models.Event
	err = config.GetCollection(ec.db, "events").FindOne(ctx, bson.M{"_id": eventID, "isPublished": true}).Decode(&event)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Event not found",
			})
		}
		log.Printf("Error finding event: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	rsvps := config.GetCollection(ec.db, "event_rsvps")

	status := req.Status
	if status == models.RSVPStatusAttending && event.Capacity > 0 {
		attending, err := rsvps.CountDocuments(ctx, bson.M{
			"eventId": eventID,
			"userId":  bson.M{"$ne": attendeeID},
			"status":  models.RSVPStatusAttending,
		})
		if err != nil {
			log.Printf("Error counting RSVPs: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Database error",
			})
		}
		if attending >= int64(event.Capacity) {
			status = models.RSVPStatusWaitlist
		}
	}

	now := time.Now()
	_, err = rsvps.UpdateOne(ctx,
		bson.M{"eventId": eventID, "userId": attendeeID},
		bson.M{
			"$set": bson.M{"status": status, "updatedAt": now},
			"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID(),
				"eventId":   eventID,
				"userId":    attendeeID,
				"createdAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Printf("Error saving RSVP: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save RSVP",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "RSVP saved",
		Data:    map[string]string{"status": status},
	})
}

// Announce fans an organizer update out to everyone attending the event.
// Delivery runs best-effort; the announcement row is created either way.
func (ec *EventController) Announce(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	senderID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	var req models.AnnounceEventRequest
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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	notification, err := ec.svc.NotifyEvent(ctx, eventID, req.Title, req.Content, senderID)
	if err != nil {
		if err == services.ErrNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Event not found",
			})
		}
		log.Printf("Error announcing event %s: %v", eventID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send announcement",
		})
	}

	// Confirmation email to the owning organization, best-effort
	go ec.emailOrgContact(eventID, req.Title)

	return c.JSON(http.StatusAccepted, models.Response{
		Status:  http.StatusAccepted,
		Message: "Announcement queued",
		Data:    notification,
	})
}

func (ec *EventController) emailOrgContact(eventID primitive.ObjectID, title string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var event models.Event
	if err := config.GetCollection(ec.db, "events").FindOne(ctx, bson.M{"_id": eventID}).Decode(&event); err != nil {
		return
	}
	var org models.Organization
	if err := config.GetCollection(ec.db, "organizations").FindOne(ctx, bson.M{"_id": event.OrganizationID}).Decode(&org); err != nil {
		return
	}
	if org.ContactEmail == "" {
		return
	}
	body := "Your announcement \"" + title + "\" for event \"" + event.Title + "\" has been sent to attendees."
	if err := utils.SendEmail(org.ContactEmail, "Announcement sent: "+event.Title, body); err != nil {
		log.Printf("Error emailing org contact for event %s: %v", eventID.Hex(), err)
	}
}

// CheckinQRCode streams the event's door check-in QR code as a PNG
func (ec *EventController) CheckinQRCode(c echo.Context) error {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = config.GetCollection(ec.db, "events").FindOne(ctx, bson.M{"_id": eventID}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Event not found",
			})
		}
		log.Printf("Error finding event: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	png, err := utils.EventCheckinQR(eventID.Hex())
	if err != nil {
		log.Printf("Error generating QR code: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code",
		})
	}

	return c.Blob(http.StatusOK, "image/png", png)
}

// UploadCover stores a cover image for the event and records its URLs
func (ec *EventController) UploadCover(c echo.Context) error {
	eventID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event ID",
		})
	}

	file, err := c.FormFile("cover")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing cover file",
		})
	}

	coverURL, thumbnailURL, err := utils.SaveEventCover(file)
	if err != nil {
		log.Printf("Error saving cover: %v", err)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(ec.db, "events").UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"coverUrl": coverURL, "thumbnailUrl": thumbnailURL, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("Error updating event cover: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update event",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Event not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Cover uploaded",
		Data: map[string]string{
			"coverUrl":     coverURL,
			"thumbnailUrl": thumbnailURL,
		},
	})
}
