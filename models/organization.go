package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization model. Every event belongs to exactly one organization.
type Organization struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Slug         string             `json:"slug" bson:"slug"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	ContactEmail string             `json:"contactEmail,omitempty" bson:"contactEmail,omitempty"`
	LogoPath     string             `json:"logoPath,omitempty" bson:"logoPath,omitempty"`
	OwnerID      primitive.ObjectID `json:"ownerId" bson:"ownerId"`
	IsActive     bool               `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreateOrganizationRequest model
type CreateOrganizationRequest struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"required,lowercase"`
	Description  string `json:"description,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty" validate:"omitempty,email"`
}

// AddMemberRequest model
type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=member organizer admin"`
}
