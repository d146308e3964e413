package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// ErrNotFound is returned when a trigger references a nonexistent event or
// thread. The pipeline makes no writes in that case.
var ErrNotFound = errors.New("not found")

const (
	sweepBatchLimit = 50
	sweepClaimTTL   = 2 * time.Minute
)

// NotificationStore persists notifications and their per-recipient delivery
// rows. CreateWithRecipients must be idempotent on (triggerType, triggerId):
// the bool return is false when an earlier invocation already created the
// notification.
type NotificationStore interface {
	CreateWithRecipients(ctx context.Context, notification *models.Notification, audience []primitive.ObjectID) (*models.Notification, bool, error)
	Recipients(ctx context.Context, notificationID primitive.ObjectID) ([]primitive.ObjectID, error)
	FindPending(ctx context.Context, limit int64) ([]models.Notification, error)
	MarkSent(ctx context.Context, id primitive.ObjectID) error
	MarkFailed(ctx context.Context, id primitive.ObjectID) error
}

// TokenStore maps users to their registered device tokens
type TokenStore interface {
	TokensFor(ctx context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.PushToken, error)
	Deactivate(ctx context.Context, tokens []string) error
}

// NotificationService runs the fan-out pipeline: resolve audience, persist
// the notification with its delivery rows, look up tokens, dispatch through
// the push gateway and finalize the status. Push failures are absorbed here
// and only surface through Notification.status and logs — the triggering
// user action never fails because push delivery failed.
type NotificationService struct {
	store      NotificationStore
	tokens     TokenStore
	resolver   AudienceResolver
	dispatcher *PushDispatcher
	redis      *redis.Client
}

// NewNotificationService wires the pipeline. redisClient may be nil, in
// which case overlapping sweeps tolerate duplicate dispatch attempts
// instead of skipping claimed notifications.
func NewNotificationService(store NotificationStore, tokens TokenStore, resolver AudienceResolver, gateway PushGateway, redisClient *redis.Client) *NotificationService {
	return &NotificationService{
		store:      store,
		tokens:     tokens,
		resolver:   resolver,
		dispatcher: NewPushDispatcher(gateway, tokens),
		redis:      redisClient,
	}
}

// NotifyEvent broadcasts an announcement to all attending RSVPs of the event.
// Each announcement is its own trigger, so an organizer can announce the same
// event more than once.
func (s *NotificationService) NotifyEvent(ctx context.Context, eventID primitive.ObjectID, title, content string, createdBy primitive.ObjectID) (*models.Notification, error) {
	audience, err := s.resolver.ResolveEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	return s.notify(ctx, notifyParams{
		Type:        models.NotificationTypeEventUpdate,
		Title:       title,
		Body:        content,
		Data:        map[string]string{"eventId": eventID.Hex()},
		TriggerType: models.NotificationTypeEventUpdate,
		TriggerID:   primitive.NewObjectID().Hex(),
		CreatedBy:   createdBy,
	}, audience)
}

// NotifyEventReminder creates the scheduled reminder for an event. The
// trigger is keyed by the event ID, so repeated scheduler passes over the
// same event short-circuit on the existing notification.
func (s *NotificationService) NotifyEventReminder(ctx context.Context, event *models.Event) (*models.Notification, error) {
	audience, err := s.resolver.ResolveEvent(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	return s.notify(ctx, notifyParams{
		Type:        models.NotificationTypeReminder,
		Title:       "Starting soon: " + event.Title,
		Body:        "Your event starts at " + event.StartsAt.Format("15:04"),
		Data:        map[string]string{"eventId": event.ID.Hex()},
		TriggerType: models.NotificationTypeReminder,
		TriggerID:   event.ID.Hex(),
		CreatedBy:   event.CreatedBy,
	}, audience)
}

// NotifyThreadMessage fans a chat message out to the thread's active members,
// excluding the sender. Re-invoking with the same message ID returns the
// existing notification instead of fanning out twice.
func (s *NotificationService) NotifyThreadMessage(ctx context.Context, threadID, messageID, senderID primitive.ObjectID, senderName, preview string) (*models.Notification, error) {
	audience, err := s.resolver.ResolveThread(ctx, threadID, senderID)
	if err != nil {
		return nil, err
	}

	return s.notify(ctx, notifyParams{
		Type:  models.NotificationTypeChatMessage,
		Title: senderName,
		Body:  preview,
		Data: map[string]string{
			"threadId":  threadID.Hex(),
			"messageId": messageID.Hex(),
		},
		TriggerType: models.NotificationTypeChatMessage,
		TriggerID:   messageID.Hex(),
		CreatedBy:   senderID,
	}, audience)
}

// NotifyNewThread tells the initial members they were added to a thread
func (s *NotificationService) NotifyNewThread(ctx context.Context, threadID primitive.ObjectID, threadName string, createdBy primitive.ObjectID, memberIDs []primitive.ObjectID) (*models.Notification, error) {
	audience, err := s.resolver.ResolveUsers(ctx, excludeID(memberIDs, createdBy), models.NotificationTypeNewThread)
	if err != nil {
		return nil, err
	}

	return s.notify(ctx, notifyParams{
		Type:        models.NotificationTypeNewThread,
		Title:       "New conversation",
		Body:        "You were added to " + threadName,
		Data:        map[string]string{"threadId": threadID.Hex()},
		TriggerType: models.NotificationTypeNewThread,
		TriggerID:   threadID.Hex(),
		CreatedBy:   createdBy,
	}, audience)
}

// NotifyUsers sends a direct notification to an explicit recipient list
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []primitive.ObjectID, title, body string, data map[string]string, createdBy primitive.ObjectID) (*models.Notification, error) {
	audience, err := s.resolver.ResolveUsers(ctx, userIDs, models.NotificationTypeDirect)
	if err != nil {
		return nil, err
	}

	return s.notify(ctx, notifyParams{
		Type:        models.NotificationTypeDirect,
		Title:       title,
		Body:        body,
		Data:        data,
		TriggerType: models.NotificationTypeDirect,
		TriggerID:   primitive.NewObjectID().Hex(),
		CreatedBy:   createdBy,
	}, audience)
}

type notifyParams struct {
	Type        string
	Title       string
	Body        string
	Data        map[string]string
	TriggerType string
	TriggerID   string
	CreatedBy   primitive.ObjectID
}

// notify persists the notification with its delivery rows, then attempts
// push delivery. An empty audience still creates the notification so the
// creator sees confirmation; it is finalized as sent with zero fan-out.
func (s *NotificationService) notify(ctx context.Context, params notifyParams, audience []primitive.ObjectID) (*models.Notification, error) {
	notification := &models.Notification{
		Type:        params.Type,
		Title:       params.Title,
		Body:        params.Body,
		Data:        params.Data,
		Status:      models.NotificationStatusPending,
		TriggerType: params.TriggerType,
		TriggerID:   params.TriggerID,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   time.Now(),
	}

	created, fresh, err := s.store.CreateWithRecipients(ctx, notification, audience)
	if err != nil {
		return nil, err
	}
	if !fresh {
		// Duplicate trigger: the earlier invocation owns delivery
		return created, nil
	}

	s.deliver(ctx, created, audience)
	return created, nil
}

// deliver runs token lookup, dispatch and finalization for one notification.
// Errors here never propagate: the notification stays pending and the next
// sweep retries the per-user dispatch step.
func (s *NotificationService) deliver(ctx context.Context, notification *models.Notification, audience []primitive.ObjectID) {
	if len(audience) == 0 {
		s.finalize(ctx, notification, DispatchSummary{})
		return
	}

	tokensByUser, err := s.tokens.TokensFor(ctx, audience)
	if err != nil {
		log.Printf("Token lookup failed for notification %s: %v", notification.ID.Hex(), err)
		return
	}

	summary := s.dispatcher.Dispatch(ctx, notification, tokensByUser)
	s.finalize(ctx, notification, summary)
}

// finalize records the terminal status. Zero eligible tokens counts as sent
// (nothing to deliver); transient-only outcomes leave the notification
// pending so a later sweep retries; only an all-permanent failure with at
// least one token attempted is marked failed.
func (s *NotificationService) finalize(ctx context.Context, notification *models.Notification, summary DispatchSummary) {
	switch {
	case summary.Attempted == 0 || summary.Delivered > 0:
		if err := s.store.MarkSent(ctx, notification.ID); err != nil {
			log.Printf("Error marking notification %s sent: %v", notification.ID.Hex(), err)
		}
	case summary.Transient > 0 || summary.RateLimited > 0:
		log.Printf("Notification %s left pending (%d transient, %d rate limited)",
			notification.ID.Hex(), summary.Transient, summary.RateLimited)
	default:
		if err := s.store.MarkFailed(ctx, notification.ID); err != nil {
			log.Printf("Error marking notification %s failed: %v", notification.ID.Hex(), err)
		}
	}
}

// ProcessPending is the scheduled sweep: it re-attempts push delivery for
// notifications still pending. The audience is re-read from the existing
// delivery rows, not re-resolved. Returns the number of notifications
// processed.
func (s *NotificationService) ProcessPending(ctx context.Context) (int, error) {
	pending, err := s.store.FindPending(ctx, sweepBatchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range pending {
		notification := &pending[i]
		if !s.claim(ctx, notification.ID) {
			continue
		}

		audience, err := s.store.Recipients(ctx, notification.ID)
		if err != nil {
			log.Printf("Error loading recipients for notification %s: %v", notification.ID.Hex(), err)
			continue
		}

		s.deliver(ctx, notification, audience)
		processed++
	}

	return processed, nil
}

// claim takes a short-lived Redis lock on the notification so a sweep still
// running when the next tick fires does not dispatch it twice. Without Redis
// the claim always succeeds; duplicate dispatch is tolerated (at-least-once,
// and token deactivation is idempotent).
func (s *NotificationService) claim(ctx context.Context, id primitive.ObjectID) bool {
	if s.redis == nil {
		return true
	}

	ok, err := s.redis.SetNX(ctx, "sweep:claim:"+id.Hex(), "1", sweepClaimTTL).Result()
	if err != nil {
		log.Printf("Error claiming notification %s: %v", id.Hex(), err)
		return true
	}
	return ok
}
