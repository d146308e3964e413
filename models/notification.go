package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification status values. Transitions only go pending -> sent or
// pending -> failed; a notification left pending is picked up again by
// the scheduled sweep.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification types
const (
	NotificationTypeEventUpdate = "event_update"
	NotificationTypeChatMessage = "chat_message"
	NotificationTypeNewThread   = "new_thread"
	NotificationTypeReminder    = "scheduled_reminder"
	NotificationTypeDirect      = "direct"
)

// Notification model. One row per triggering domain event; the
// (triggerType, triggerId) pair carries a unique index so re-invoking the
// same trigger never fans out twice.
type Notification struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Type        string             `json:"type" bson:"type"`
	Title       string             `json:"title" bson:"title"`
	Body        string             `json:"body" bson:"body"`
	Data        map[string]string  `json:"data,omitempty" bson:"data,omitempty"`
	Status      string             `json:"status" bson:"status"`
	TriggerType string             `json:"triggerType" bson:"triggerType"`
	TriggerID   string             `json:"triggerId" bson:"triggerId"`
	CreatedBy   primitive.ObjectID `json:"createdBy,omitempty" bson:"createdBy,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	SentAt      *time.Time         `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
}

// UserNotification is the per-recipient delivery record. It exists for every
// resolved recipient before any push attempt is made, so a user with no
// registered device still has a durable, queryable notification.
type UserNotification struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	NotificationID primitive.ObjectID `json:"notificationId" bson:"notificationId"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	IsRead         bool               `json:"isRead" bson:"isRead"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// PushToken represents one device registration. A user may hold several
// tokens (multi-device). Tokens the gateway reports as permanently invalid
// are flipped to isActive=false so later sweeps skip them.
type PushToken struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Token     string             `json:"token" bson:"token"`
	Platform  string             `json:"platform" bson:"platform"` // "ios" or "android"
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserNotificationView is what the inbox endpoint returns: the delivery row
// joined with its owning notification.
type UserNotificationView struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	IsRead       bool               `json:"isRead" bson:"isRead"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	Notification Notification       `json:"notification" bson:"notification"`
}

// RegisterPushTokenRequest is the request body for registering a device token
type RegisterPushTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// SendDirectNotificationRequest is the admin request body for direct addressing
type SendDirectNotificationRequest struct {
	UserIDs []string          `json:"userIds" validate:"required,min=1"`
	Title   string            `json:"title" validate:"required"`
	Body    string            `json:"body" validate:"required"`
	Data    map[string]string `json:"data,omitempty"`
}
