// models/user.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID                   primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Email                string              `json:"email" bson:"email"`
	Password             string              `json:"password,omitempty" bson:"password"`
	FullName             string              `json:"fullName" bson:"fullName"`
	Role                 string              `json:"role" bson:"role"` // "member", "organizer", "admin"
	IsActive             bool                `json:"isActive" bson:"isActive"`
	Phone                string              `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePic           string              `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	OrganizationID       *primitive.ObjectID `json:"organizationId,omitempty" bson:"organizationId,omitempty"`
	Location             *Location           `json:"location,omitempty" bson:"location,omitempty"`
	NotificationsEnabled bool                `json:"notificationsEnabled" bson:"notificationsEnabled"`
	MutedTypes           []string            `json:"mutedTypes,omitempty" bson:"mutedTypes,omitempty"`
	LastActivityAt       time.Time           `json:"lastActivityAt" bson:"lastActivityAt"`
	CreatedAt            time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Location model. Older mobile clients stored locations as a bare string;
// newer ones send the structured shape. Both decode into this type, so the
// parsing happens once at the storage boundary instead of in every consumer.
type Location struct {
	Name    string  `json:"name" bson:"name"`
	Address string  `json:"address,omitempty" bson:"address,omitempty"`
	City    string  `json:"city,omitempty" bson:"city,omitempty"`
	Lat     float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty" bson:"lng,omitempty"`
}

// UnmarshalJSON accepts either a plain string or the structured object.
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Location{Name: s}
		return nil
	}

	type alias Location
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = Location(a)
	return nil
}

// UnmarshalBSONValue handles legacy documents where the location field is a
// bare string.
func (l *Location) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bson.TypeString:
		var str string
		if err := bson.UnmarshalValue(t, data, &str); err != nil {
			return err
		}
		*l = Location{Name: str}
		return nil
	case bson.TypeEmbeddedDocument:
		type alias Location
		var a alias
		if err := bson.Unmarshal(data, &a); err != nil {
			return err
		}
		*l = Location(a)
		return nil
	case bson.TypeNull:
		*l = Location{}
		return nil
	default:
		return fmt.Errorf("cannot decode %v into Location", t)
	}
}

// SignupRequest model
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest model
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateNotificationPrefsRequest toggles push eligibility for the user
type UpdateNotificationPrefsRequest struct {
	NotificationsEnabled *bool    `json:"notificationsEnabled,omitempty"`
	MutedTypes           []string `json:"mutedTypes,omitempty"`
}

// Response is the standard JSON envelope for all endpoints
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
