package services

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
	"github.com/ThinkModa/pbr-mvp-sub002/websocket"
)

// NotificationWatcher tails the user_notifications change stream and pushes
// new delivery rows to connected recipients over WebSocket. It has an
// explicit lifecycle: Start on boot, Stop on shutdown. Change streams need a
// replica set; on standalone deployments Start fails and the app runs
// without realtime delivery.
type NotificationWatcher struct {
	db     *mongo.Client
	hub    *websocket.Hub
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNotificationWatcher creates a watcher over the given hub
func NewNotificationWatcher(db *mongo.Client, hub *websocket.Hub) *NotificationWatcher {
	return &NotificationWatcher{db: db, hub: hub}
}

// Start opens the change stream and begins forwarding inserts
func (w *NotificationWatcher) Start() error {
	ctx, cancel := context.WithCancel(context.Background())

	coll := config.GetCollection(w.db, "user_notifications")
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "operationType", Value: "insert"}}}},
	}

	stream, err := coll.Watch(ctx, pipeline)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open change stream: %w", err)
	}

	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, stream)

	log.Println("Notification change stream watcher started")
	return nil
}

// Stop closes the stream and waits for the forwarding loop to exit
func (w *NotificationWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
}

func (w *NotificationWatcher) run(ctx context.Context, stream *mongo.ChangeStream) {
	defer close(w.done)
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event struct {
			FullDocument models.UserNotification `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			log.Printf("Error decoding change event: %v", err)
			continue
		}

		// Offline users are skipped; the durable row is what they query later
		w.hub.SendToUser(event.FullDocument.UserID, websocket.Message{
			Type: websocket.MessageTypeNotification,
			Data: event.FullDocument,
		})
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Printf("Notification change stream closed: %v", err)
	}
}
