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
	"github.com/ThinkModa/pbr-mvp-sub002/websocket"
)

const messagePreviewLen = 120

// ChatController manages threads, memberships and messages. Message posts
// fan out over both the websocket hub and the push pipeline.
type ChatController struct {
	db  *mongo.Client
	svc *services.NotificationService
	hub *websocket.Hub
}

// NewChatController creates a new chat controller
func NewChatController(db *mongo.Client, svc *services.NotificationService, hub *websocket.Hub) *ChatController {
	return &ChatController{db: db, svc: svc, hub: hub}
}

// CreateThread creates a thread and enrolls the creator plus any listed members
func (cc *ChatController) CreateThread(c echo.Context) error {
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

	var req models.CreateThreadRequest
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	thread := models.ChatThread{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		CreatedBy: creatorID,
		CreatedAt: time.Now(),
	}
	if req.EventID != "" {
		eventID, err := primitive.ObjectIDFromHex(req.EventID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid event ID",
			})
		}
		if err := config.GetCollection(cc.db, "events").FindOne(ctx, bson.M{"_id": eventID}).Err(); err != nil {
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
		thread.EventID = &eventID
	}

	if _, err := config.GetCollection(cc.db, "chat_threads").InsertOne(ctx, thread); err != nil {
		log.Printf("Error inserting thread: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create thread",
		})
	}

	memberIDs := []primitive.ObjectID{creatorID}
	for _, hex := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil || id == creatorID {
			continue
		}
		memberIDs = append(memberIDs, id)
	}

	now := time.Now()
	memberships := make([]interface{}, 0, len(memberIDs))
	for _, id := range memberIDs {
		memberships = append(memberships, models.ChatMembership{
			ID:        primitive.NewObjectID(),
			ThreadID:  thread.ID,
			UserID:    id,
			IsActive:  true,
			JoinedAt:  now,
			UpdatedAt: now,
		})
	}
	if _, err := config.GetCollection(cc.db, "chat_memberships").InsertMany(ctx, memberships); err != nil {
		log.Printf("Error inserting memberships: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to enroll members",
		})
	}

	// Invited members (not the creator) get a push, best-effort
	if len(memberIDs) > 1 {
		if _, err := cc.svc.NotifyNewThread(ctx, thread.ID, thread.Name, creatorID, memberIDs[1:]); err != nil {
			log.Printf("Error notifying new thread %s: %v", thread.ID.Hex(), err)
		}
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Thread created",
		Data:    thread,
	})
}

// ListMyThreads returns the threads the caller is an active member of
func (cc *ChatController) ListMyThreads(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	memberID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.GetCollection(cc.db, "chat_memberships").Find(ctx,
		bson.M{"userId": memberID, "isActive": true, "hasLeft": false})
	if err != nil {
		log.Printf("Error listing memberships: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	defer cursor.Close(ctx)

	var memberships []models.ChatMembership
	if err := cursor.All(ctx, &memberships); err != nil {
		log.Printf("Error decoding memberships: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	threadIDs := make([]primitive.ObjectID, 0, len(memberships))
	for _, m := range memberships {
		threadIDs = append(threadIDs, m.ThreadID)
	}

	threads := []models.ChatThread{}
	if len(threadIDs) > 0 {
		tc, err := config.GetCollection(cc.db, "chat_threads").Find(ctx, bson.M{"_id": bson.M{"$in": threadIDs}})
		if err != nil {
			log.Printf("Error listing threads: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Database error",
			})
		}
		defer tc.Close(ctx)
		if err := tc.All(ctx, &threads); err != nil {
			log.Printf("Error decoding threads: %v", err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Database error",
			})
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Threads retrieved",
		Data:    threads,
	})
}

// JoinThread adds the caller to a thread, reactivating an old membership if
// they left before
func (cc *ChatController) JoinThread(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	memberID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	threadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid thread ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := config.GetCollection(cc.db, "chat_threads").FindOne(ctx, bson.M{"_id": threadID}).Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Thread not found",
			})
		}
		log.Printf("Error finding thread: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	now := time.Now()
	_, err = config.GetCollection(cc.db, "chat_memberships").UpdateOne(ctx,
		bson.M{"threadId": threadID, "userId": memberID},
		bson.M{
			"$set": bson.M{"isActive": true, "hasLeft": false, "updatedAt": now},
			"$setOnInsert": bson.M{
				"_id":      primitive.NewObjectID(),
				"threadId": threadID,
				"userId":   memberID,
				"joinedAt": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Printf("Error joining thread: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to join thread",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Joined thread",
	})
}

// LeaveThread marks the caller's membership as left. The row stays so their
// old messages remain attributable.
func (cc *ChatController) LeaveThread(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	memberID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	threadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid thread ID",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(cc.db, "chat_memberships").UpdateOne(ctx,
		bson.M{"threadId": threadID, "userId": memberID},
		bson.M{"$set": bson.M{"isActive": false, "hasLeft": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("Error leaving thread: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to leave thread",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Membership not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Left thread",
	})
}

// PostMessage appends a message to a thread. Online members get it over the
// websocket hub immediately; everyone else gets a push.
func (cc *ChatController) PostMessage(c echo.Context) error {
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
	threadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid thread ID",
		})
	}

	var req models.PostMessageRequest
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

	membership := config.GetCollection(cc.db, "chat_memberships")
	err = membership.FindOne(ctx, bson.M{
		"threadId": threadID,
		"userId":   senderID,
		"isActive": true,
		"hasLeft":  false,
	}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "You are not a member of this thread",
			})
		}
		log.Printf("Error checking membership: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	message := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		ThreadID:  threadID,
		SenderID:  senderID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if _, err := config.GetCollection(cc.db, "chat_messages").InsertOne(ctx, message); err != nil {
		log.Printf("Error inserting message: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to post message",
		})
	}

	var sender models.User
	senderName := "Someone"
	if err := config.GetCollection(cc.db, "users").FindOne(ctx, bson.M{"_id": senderID}).Decode(&sender); err == nil {
		senderName = sender.FullName
	}

	cc.fanOutMessage(ctx, message, senderName)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Message posted",
		Data:    message,
	})
}

func (cc *ChatController) fanOutMessage(ctx context.Context, message models.ChatMessage, senderName string) {
	cursor, err := config.GetCollection(cc.db, "chat_memberships").Find(ctx, bson.M{
		"threadId": message.ThreadID,
		"isActive": true,
		"hasLeft":  false,
		"userId":   bson.M{"$ne": message.SenderID},
	})
	if err == nil {
		var members []models.ChatMembership
		if err := cursor.All(ctx, &members); err == nil {
			ids := make([]primitive.ObjectID, 0, len(members))
			for _, m := range members {
				ids = append(ids, m.UserID)
			}
			cc.hub.BroadcastToUsers(ids, websocket.Message{
				Type: websocket.MessageTypeChatMessage,
				Data: message,
			})
		}
	}

	preview := message.Content
	if len(preview) > messagePreviewLen {
		preview = preview[:messagePreviewLen]
	}
	if _, err := cc.svc.NotifyThreadMessage(ctx, message.ThreadID, message.ID, message.SenderID, senderName, preview); err != nil {
		log.Printf("Error notifying thread %s: %v", message.ThreadID.Hex(), err)
	}
}

// ListMessages returns a thread's messages, newest first
func (cc *ChatController) ListMessages(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}
	memberID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user ID",
		})
	}
	threadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid thread ID",
		})
	}

	limit := int64(50)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = config.GetCollection(cc.db, "chat_memberships").FindOne(ctx, bson.M{
		"threadId": threadID,
		"userId":   memberID,
		"isActive": true,
	}).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "You are not a member of this thread",
			})
		}
		log.Printf("Error checking membership: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := config.GetCollection(cc.db, "chat_messages").Find(ctx, bson.M{"threadId": threadID}, opts)
	if err != nil {
		log.Printf("Error listing messages: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	defer cursor.Close(ctx)

	var messages []models.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		log.Printf("Error decoding messages: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Messages retrieved",
		Data:    messages,
	})
}
