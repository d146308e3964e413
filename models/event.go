package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RSVP status values
const (
	RSVPStatusAttending = "attending"
	RSVPStatusWaitlist  = "waitlist"
	RSVPStatusDeclined  = "declined"
)

// Event model
type Event struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	OrganizationID primitive.ObjectID `json:"organizationId" bson:"organizationId"`
	Title          string             `json:"title" bson:"title"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Location       *Location          `json:"location,omitempty" bson:"location,omitempty"`
	StartsAt       time.Time          `json:"startsAt" bson:"startsAt"`
	EndsAt         time.Time          `json:"endsAt" bson:"endsAt"`
	Capacity       int                `json:"capacity" bson:"capacity"` // 0 means unlimited
	CoverURL       string             `json:"coverUrl,omitempty" bson:"coverUrl,omitempty"`
	ThumbnailURL   string             `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	Activities     []Activity         `json:"activities,omitempty" bson:"activities,omitempty"`
	IsPublished    bool               `json:"isPublished" bson:"isPublished"`
	CreatedBy      primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Activity is a sub-session nested inside an event (talk, workshop, meal slot)
type Activity struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	StartsAt    time.Time          `json:"startsAt" bson:"startsAt"`
	EndsAt      time.Time          `json:"endsAt" bson:"endsAt"`
	Capacity    int                `json:"capacity" bson:"capacity"`
}

// EventRSVP links a user to an event. Audience resolution for event
// notifications only considers rows with status "attending".
type EventRSVP struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	EventID   primitive.ObjectID `json:"eventId" bson:"eventId"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateEventRequest model
type CreateEventRequest struct {
	Title       string                  `json:"title" validate:"required"`
	Description string                  `json:"description,omitempty"`
	Location    *Location               `json:"location,omitempty"`
	StartsAt    time.Time               `json:"startsAt" validate:"required"`
	EndsAt      time.Time               `json:"endsAt" validate:"required,gtfield=StartsAt"`
	Capacity    int                     `json:"capacity" validate:"gte=0"`
	Activities  []CreateActivityRequest `json:"activities,omitempty" validate:"dive"`
}

// CreateActivityRequest model
type CreateActivityRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	EndsAt      time.Time `json:"endsAt" validate:"required"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
}

// RSVPRequest model
type RSVPRequest struct {
	Status string `json:"status" validate:"required,oneof=attending waitlist declined"`
}

// AnnounceEventRequest is the organizer broadcast body
type AnnounceEventRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}
