package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// NotificationRepository persists notifications and their per-recipient
// delivery rows.
type NotificationRepository struct {
	client            *mongo.Client
	notifications     *mongo.Collection
	userNotifications *mongo.Collection
}

// NewNotificationRepository creates the repository
func NewNotificationRepository(db *mongo.Client) *NotificationRepository {
	return &NotificationRepository{
		client:            db,
		notifications:     config.GetCollection(db, "notifications"),
		userNotifications: config.GetCollection(db, "user_notifications"),
	}
}

// CreateWithRecipients inserts one notification plus one delivery row per
// audience member. Observers never see the notification without its delivery
// rows: the writes run in a single transaction where the deployment supports
// one. The unique (triggerType, triggerId) index makes creation idempotent;
// when it fires, the existing notification is returned with created=false.
func (r *NotificationRepository) CreateWithRecipients(ctx context.Context, notification *models.Notification, audience []primitive.ObjectID) (*models.Notification, bool, error) {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	notification.Status = models.NotificationStatusPending

	session, err := r.client.StartSession()
	if err == nil {
		defer session.EndSession(ctx)

		_, txErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, r.insertAll(sc, notification, audience)
		})
		if txErr == nil {
			return notification, true, nil
		}
		if mongo.IsDuplicateKeyError(txErr) {
			return r.findByTrigger(ctx, notification, txErr)
		}
		if !isTransactionUnsupported(txErr) {
			return nil, false, fmt.Errorf("failed to create notification: %w", txErr)
		}
		// Standalone deployment without transaction support: fall through to
		// the sequential path with compensating cleanup.
	}

	if err := r.insertAll(ctx, notification, audience); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return r.findByTrigger(ctx, notification, err)
		}
		// Compensating cleanup so no orphaned notification survives a
		// partial insert
		r.userNotifications.DeleteMany(ctx, bson.M{"notificationId": notification.ID})
		r.notifications.DeleteOne(ctx, bson.M{"_id": notification.ID, "status": models.NotificationStatusPending})
		return nil, false, fmt.Errorf("failed to create notification: %w", err)
	}

	return notification, true, nil
}

func (r *NotificationRepository) insertAll(ctx context.Context, notification *models.Notification, audience []primitive.ObjectID) error {
	if _, err := r.notifications.InsertOne(ctx, notification); err != nil {
		return err
	}
	if len(audience) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]interface{}, 0, len(audience))
	for _, userID := range audience {
		rows = append(rows, models.UserNotification{
			ID:             primitive.NewObjectID(),
			NotificationID: notification.ID,
			UserID:         userID,
			IsRead:         false,
			CreatedAt:      now,
		})
	}

	_, err := r.userNotifications.InsertMany(ctx, rows)
	return err
}

// findByTrigger resolves a duplicate-key error to the notification that won
// the race
func (r *NotificationRepository) findByTrigger(ctx context.Context, notification *models.Notification, dupErr error) (*models.Notification, bool, error) {
	var existing models.Notification
	err := r.notifications.FindOne(ctx, bson.M{
		"triggerType": notification.TriggerType,
		"triggerId":   notification.TriggerID,
	}).Decode(&existing)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing notification: %w", dupErr)
	}
	return &existing, false, nil
}

// isTransactionUnsupported detects the standalone-deployment rejection
func isTransactionUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers")
}

// Recipients returns the user IDs holding delivery rows for the notification
func (r *NotificationRepository) Recipients(ctx context.Context, notificationID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := r.userNotifications.Find(ctx, bson.M{"notificationId": notificationID})
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer cursor.Close(ctx)

	var userIDs []primitive.ObjectID
	for cursor.Next(ctx) {
		var row struct {
			UserID primitive.ObjectID `bson:"userId"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode recipient: %w", err)
		}
		userIDs = append(userIDs, row.UserID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("recipient cursor error: %w", err)
	}

	return userIDs, nil
}

// FindPending returns up to limit pending notifications, oldest first
func (r *NotificationRepository) FindPending(ctx context.Context, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.notifications.Find(ctx, bson.M{"status": models.NotificationStatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var pending []models.Notification
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending notifications: %w", err)
	}
	return pending, nil
}

// MarkSent transitions pending -> sent and stamps sentAt. The status filter
// keeps terminal states from reverting under concurrent sweeps.
func (r *NotificationRepository) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	_, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.NotificationStatusPending},
		bson.M{"$set": bson.M{"status": models.NotificationStatusSent, "sentAt": now}},
	)
	return err
}

// MarkFailed transitions pending -> failed
func (r *NotificationRepository) MarkFailed(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.NotificationStatusPending},
		bson.M{"$set": bson.M{"status": models.NotificationStatusFailed}},
	)
	return err
}

// InboxFor returns the user's delivery rows joined with their notifications,
// newest first.
func (r *NotificationRepository) InboxFor(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.UserNotificationView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "userId", Value: userID}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "notifications"},
			{Key: "localField", Value: "notificationId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "notification"},
		}}},
		{{Key: "$unwind", Value: "$notification"}},
	}

	cursor, err := r.userNotifications.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox: %w", err)
	}
	defer cursor.Close(ctx)

	var inbox []models.UserNotificationView
	if err := cursor.All(ctx, &inbox); err != nil {
		return nil, fmt.Errorf("failed to decode inbox: %w", err)
	}
	return inbox, nil
}

// MarkRead flips one delivery row to read. Scoped to the owning user so one
// user cannot mark another's rows.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.userNotifications.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// MarkAllRead flips every unread row for the user
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.userNotifications.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// UnreadCount returns the number of unread delivery rows for the user
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.userNotifications.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
}
