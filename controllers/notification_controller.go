package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
)

const inboxPageSize = 50

// notificationInbox is the slice of the notification repository this
// controller reads from.
type notificationInbox interface {
	InboxFor(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.UserNotificationView, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// tokenRegistry manages device push token registration
type tokenRegistry interface {
	Register(ctx context.Context, userID primitive.ObjectID, token, platform string) error
	Remove(ctx context.Context, userID primitive.ObjectID, token string) error
}

// notifier is the part of the notification service this controller drives
type notifier interface {
	NotifyUsers(ctx context.Context, userIDs []primitive.ObjectID, title, body string, data map[string]string, createdBy primitive.ObjectID) (*models.Notification, error)
	ProcessPending(ctx context.Context) (int, error)
}

// NotificationController exposes the device token registry, the in-app
// inbox, direct sends and the manual sweep trigger
type NotificationController struct {
	inbox  notificationInbox
	tokens tokenRegistry
	svc    notifier
}

// NewNotificationController creates a new notification controller
func NewNotificationController(inbox notificationInbox, tokens tokenRegistry, svc notifier) *NotificationController {
	return &NotificationController{inbox: inbox, tokens: tokens, svc: svc}
}

// RegisterToken stores or reactivates a device push token for the caller
func (nc *NotificationController) RegisterToken(c echo.Context) error {
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

	var req models.RegisterPushTokenRequest
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

	if err := nc.tokens.Register(ctx, ownerID, req.Token, req.Platform); err != nil {
		log.Printf("Error registering push token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to register token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Token registered",
	})
}

// RemoveToken deactivates a device push token, typically on logout
func (nc *NotificationController) RemoveToken(c echo.Context) error {
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

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing token",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := nc.tokens.Remove(ctx, ownerID, req.Token); err != nil {
		log.Printf("Error removing push token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to remove token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Token removed",
	})
}

// ListMyNotifications returns the caller's inbox, newest first
func (nc *NotificationController) ListMyNotifications(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	items, err := nc.inbox.InboxFor(ctx, ownerID, inboxPageSize)
	if err != nil {
		log.Printf("Error listing notifications for %s: %v", ownerID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load notifications",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data:    items,
	})
}

// MarkRead marks one of the caller's notifications as read
func (nc *NotificationController) MarkRead(c echo.Context) error {
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
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := nc.inbox.MarkRead(ctx, id, ownerID); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Notification not found",
			})
		}
		log.Printf("Error marking notification read: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to mark as read",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Marked as read",
	})
}

// MarkAllRead marks the caller's entire inbox as read
func (nc *NotificationController) MarkAllRead(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := nc.inbox.MarkAllRead(ctx, ownerID)
	if err != nil {
		log.Printf("Error marking all read: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to mark all as read",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "All marked as read",
		Data:    map[string]int64{"updated": count},
	})
}

// UnreadCount returns the caller's unread badge count
func (nc *NotificationController) UnreadCount(c echo.Context) error {
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := nc.inbox.UnreadCount(ctx, ownerID)
	if err != nil {
		log.Printf("Error counting unread: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to count unread",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Unread count retrieved",
		Data:    map[string]int64{"unread": count},
	})
}

// SendDirect lets an admin push an arbitrary notification to a set of users
func (nc *NotificationController) SendDirect(c echo.Context) error {
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

	var req models.SendDirectNotificationRequest
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

	targets := make([]primitive.ObjectID, 0, len(req.UserIDs))
	for _, hex := range req.UserIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid user ID in list: " + hex,
			})
		}
		targets = append(targets, id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	notification, err := nc.svc.NotifyUsers(ctx, targets, req.Title, req.Body, req.Data, senderID)
	if err != nil {
		log.Printf("Error sending direct notification: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send notification",
		})
	}

	return c.JSON(http.StatusAccepted, models.Response{
		Status:  http.StatusAccepted,
		Message: "Notification queued",
		Data:    notification,
	})
}

// ProcessPending runs one sweep of the pending queue on demand. The ticker
// in services.Sweeper does the same thing on a schedule.
func (nc *NotificationController) ProcessPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	processed, err := nc.svc.ProcessPending(ctx)
	if err != nil {
		log.Printf("Error processing pending notifications: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Sweep failed",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Sweep complete",
		Data:    map[string]int{"processed": processed},
	})
}

// ensure the concrete service satisfies the controller's dependency
var _ notifier = (*services.NotificationService)(nil)
