package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// TokenRepository manages device push-token registrations
type TokenRepository struct {
	collection *mongo.Collection
}

// NewTokenRepository creates the repository
func NewTokenRepository(db *mongo.Client) *TokenRepository {
	return &TokenRepository{
		collection: config.GetCollection(db, "user_push_tokens"),
	}
}

// Register upserts a device token for the user. Re-registering an existing
// token reactivates it, which is how a device recovers after its token was
// deactivated by a failed dispatch.
func (r *TokenRepository) Register(ctx context.Context, userID primitive.ObjectID, token, platform string) error {
	now := time.Now()
	filter := bson.M{"userId": userID, "token": token}
	update := bson.M{
		"$set": bson.M{
			"platform":  platform,
			"isActive":  true,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID(),
			"userId":    userID,
			"token":     token,
			"createdAt": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to register push token: %w", err)
	}
	return nil
}

// Remove deactivates one of the user's tokens (e.g. on logout)
func (r *TokenRepository) Remove(ctx context.Context, userID primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"userId": userID, "token": token},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to remove push token: %w", err)
	}
	return nil
}

// TokensFor maps each user to their active tokens. Users with no active
// token are simply absent from the map; that is the expected
// no-device-registered case, not an error.
func (r *TokenRepository) TokensFor(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.PushToken, error) {
	if len(userIDs) == 0 {
		return map[primitive.ObjectID][]models.PushToken{}, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"userId":   bson.M{"$in": userIDs},
		"isActive": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query push tokens: %w", err)
	}
	defer cursor.Close(ctx)

	tokensByUser := make(map[primitive.ObjectID][]models.PushToken)
	for cursor.Next(ctx) {
		var token models.PushToken
		if err := cursor.Decode(&token); err != nil {
			return nil, fmt.Errorf("failed to decode push token: %w", err)
		}
		tokensByUser[token.UserID] = append(tokensByUser[token.UserID], token)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("push token cursor error: %w", err)
	}

	return tokensByUser, nil
}

// Deactivate marks the given token strings inactive. Idempotent: tokens
// already inactive (or re-deactivated by an overlapping sweep) are no-ops.
func (r *TokenRepository) Deactivate(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	_, err := r.collection.UpdateMany(ctx,
		bson.M{"token": bson.M{"$in": tokens}},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate push tokens: %w", err)
	}
	return nil
}
