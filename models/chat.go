package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatThread model. Threads are either scoped to an event or free-standing
// group conversations.
type ChatThread struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Name      string              `json:"name" bson:"name"`
	EventID   *primitive.ObjectID `json:"eventId,omitempty" bson:"eventId,omitempty"`
	CreatedBy primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}

// ChatMembership links a user to a thread. A member who left keeps the row
// with hasLeft=true so message history stays attributable.
type ChatMembership struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ThreadID  primitive.ObjectID `json:"threadId" bson:"threadId"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	HasLeft   bool               `json:"hasLeft" bson:"hasLeft"`
	JoinedAt  time.Time          `json:"joinedAt" bson:"joinedAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ChatMessage model
type ChatMessage struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ThreadID  primitive.ObjectID `json:"threadId" bson:"threadId"`
	SenderID  primitive.ObjectID `json:"senderId" bson:"senderId"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// CreateThreadRequest model
type CreateThreadRequest struct {
	Name      string   `json:"name" validate:"required"`
	EventID   string   `json:"eventId,omitempty"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

// PostMessageRequest model
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}
