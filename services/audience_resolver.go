package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
)

// AudienceResolver computes the set of eligible recipient user IDs for a
// trigger. Resolution failing with ErrNotFound aborts the pipeline before
// any record is written.
type AudienceResolver interface {
	ResolveEvent(ctx context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error)
	ResolveThread(ctx context.Context, threadID, senderID primitive.ObjectID) ([]primitive.ObjectID, error)
	ResolveUsers(ctx context.Context, userIDs []primitive.ObjectID, notifType string) ([]primitive.ObjectID, error)
}

// MongoAudienceResolver resolves audiences against the platform collections.
type MongoAudienceResolver struct {
	db *mongo.Client
}

// NewAudienceResolver creates a resolver over the given database client
func NewAudienceResolver(db *mongo.Client) *MongoAudienceResolver {
	return &MongoAudienceResolver{db: db}
}

// ResolveEvent returns the user IDs of all attending RSVPs for the event,
// filtered down to eligible users.
func (r *MongoAudienceResolver) ResolveEvent(ctx context.Context, eventID primitive.ObjectID) ([]primitive.ObjectID, error) {
	events := config.GetCollection(r.db, "events")
	if err := events.FindOne(ctx, bson.M{"_id": eventID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("event %s: %w", eventID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}

	rsvps := config.GetCollection(r.db, "event_rsvps")
	cursor, err := rsvps.Find(ctx, bson.M{"eventId": eventID, "status": "attending"})
	if err != nil {
		return nil, fmt.Errorf("failed to query rsvps: %w", err)
	}
	defer cursor.Close(ctx)

	var userIDs []primitive.ObjectID
	for cursor.Next(ctx) {
		var rsvp struct {
			UserID primitive.ObjectID `bson:"userId"`
		}
		if err := cursor.Decode(&rsvp); err != nil {
			return nil, fmt.Errorf("failed to decode rsvp: %w", err)
		}
		userIDs = append(userIDs, rsvp.UserID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("rsvp cursor error: %w", err)
	}

	return r.eligible(ctx, uniqueIDs(userIDs), "event_update")
}

// ResolveThread returns the user IDs of all active, non-left members of the
// thread, excluding the message sender.
func (r *MongoAudienceResolver) ResolveThread(ctx context.Context, threadID, senderID primitive.ObjectID) ([]primitive.ObjectID, error) {
	threads := config.GetCollection(r.db, "chat_threads")
	if err := threads.FindOne(ctx, bson.M{"_id": threadID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("thread %s: %w", threadID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up thread: %w", err)
	}

	memberships := config.GetCollection(r.db, "chat_memberships")
	cursor, err := memberships.Find(ctx, bson.M{
		"threadId": threadID,
		"isActive": true,
		"hasLeft":  false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer cursor.Close(ctx)

	var userIDs []primitive.ObjectID
	for cursor.Next(ctx) {
		var membership struct {
			UserID primitive.ObjectID `bson:"userId"`
		}
		if err := cursor.Decode(&membership); err != nil {
			return nil, fmt.Errorf("failed to decode membership: %w", err)
		}
		userIDs = append(userIDs, membership.UserID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("membership cursor error: %w", err)
	}

	audience := excludeID(uniqueIDs(userIDs), senderID)
	return r.eligible(ctx, audience, "chat_message")
}

// ResolveUsers filters an explicit recipient list down to eligible users
func (r *MongoAudienceResolver) ResolveUsers(ctx context.Context, userIDs []primitive.ObjectID, notifType string) ([]primitive.ObjectID, error) {
	return r.eligible(ctx, uniqueIDs(userIDs), notifType)
}

// eligible keeps only active users with notifications enabled who have not
// muted the given notification type.
func (r *MongoAudienceResolver) eligible(ctx context.Context, userIDs []primitive.ObjectID, notifType string) ([]primitive.ObjectID, error) {
	if len(userIDs) == 0 {
		return []primitive.ObjectID{}, nil
	}

	filter := bson.M{
		"_id":                  bson.M{"$in": userIDs},
		"isActive":             true,
		"notificationsEnabled": true,
	}
	if notifType != "" {
		filter["mutedTypes"] = bson.M{"$ne": notifType}
	}

	users := config.GetCollection(r.db, "users")
	cursor, err := users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var eligible []primitive.ObjectID
	for cursor.Next(ctx) {
		var user struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		eligible = append(eligible, user.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("user cursor error: %w", err)
	}

	if eligible == nil {
		eligible = []primitive.ObjectID{}
	}
	return eligible, nil
}

// uniqueIDs collapses duplicate IDs while preserving order
func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// excludeID removes one ID from the slice
func excludeID(ids []primitive.ObjectID, exclude primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}
