package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

type fakeStore struct {
	byTrigger  map[string]*models.Notification
	recipients map[primitive.ObjectID][]primitive.ObjectID
	statuses   map[primitive.ObjectID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byTrigger:  make(map[string]*models.Notification),
		recipients: make(map[primitive.ObjectID][]primitive.ObjectID),
		statuses:   make(map[primitive.ObjectID]string),
	}
}

func (f *fakeStore) CreateWithRecipients(_ context.Context, n *models.Notification, audience []primitive.ObjectID) (*models.Notification, bool, error) {
	key := n.TriggerType + "|" + n.TriggerID
	if existing, ok := f.byTrigger[key]; ok {
		return existing, false, nil
	}
	n.ID = primitive.NewObjectID()
	f.byTrigger[key] = n
	f.recipients[n.ID] = audience
	f.statuses[n.ID] = models.NotificationStatusPending
	return n, true, nil
}

func (f *fakeStore) Recipients(_ context.Context, id primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.recipients[id], nil
}

func (f *fakeStore) FindPending(_ context.Context, _ int64) ([]models.Notification, error) {
	var pending []models.Notification
	for _, n := range f.byTrigger {
		if f.statuses[n.ID] == models.NotificationStatusPending {
			pending = append(pending, *n)
		}
	}
	return pending, nil
}

func (f *fakeStore) MarkSent(_ context.Context, id primitive.ObjectID) error {
	f.statuses[id] = models.NotificationStatusSent
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id primitive.ObjectID) error {
	f.statuses[id] = models.NotificationStatusFailed
	return nil
}

type fakeTokenStore struct {
	byUser      map[primitive.ObjectID][]models.PushToken
	deactivated []string
}

func (f *fakeTokenStore) TokensFor(_ context.Context, userIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.PushToken, error) {
	out := make(map[primitive.ObjectID][]models.PushToken)
	for _, id := range userIDs {
		if tokens, ok := f.byUser[id]; ok {
			out[id] = tokens
		}
	}
	return out, nil
}

func (f *fakeTokenStore) Deactivate(_ context.Context, tokens []string) error {
	f.deactivated = append(f.deactivated, tokens...)
	return nil
}

type fakeResolver struct {
	audience []primitive.ObjectID
	err      error
}

func (f *fakeResolver) ResolveEvent(_ context.Context, _ primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.audience, f.err
}

func (f *fakeResolver) ResolveThread(_ context.Context, _, _ primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f.audience, f.err
}

func (f *fakeResolver) ResolveUsers(_ context.Context, _ []primitive.ObjectID, _ string) ([]primitive.ObjectID, error) {
	return f.audience, f.err
}

// fakeGateway answers every token with the configured outcome, or fails the
// whole call when callErr is set
type fakeGateway struct {
	outcome PushOutcome
	callErr error
	calls   int
	sent    [][]PushMessage
}

func (f *fakeGateway) Send(_ context.Context, messages []PushMessage) ([]PushResult, error) {
	f.calls++
	f.sent = append(f.sent, messages)
	if f.callErr != nil {
		return nil, f.callErr
	}
	results := make([]PushResult, len(messages))
	for i, m := range messages {
		results[i] = PushResult{Token: m.Token, Outcome: f.outcome}
	}
	return results, nil
}

func activeToken(userID primitive.ObjectID, token string) models.PushToken {
	return models.PushToken{
		ID:       primitive.NewObjectID(),
		UserID:   userID,
		Token:    token,
		Platform: "ios",
		IsActive: true,
	}
}

func TestNotifyEventFansOutToAudience(t *testing.T) {
	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		alice: {activeToken(alice, "tok-alice")},
		bob:   {activeToken(bob, "tok-bob")},
	}}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{alice, bob}}, gateway, nil)

	n, err := svc.NotifyEvent(context.Background(), primitive.NewObjectID(), "Venue change", "New hall", primitive.NewObjectID())
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, models.NotificationStatusSent, store.statuses[n.ID])
	assert.Len(t, store.recipients[n.ID], 2)
	assert.Equal(t, 1, gateway.calls)
	assert.Len(t, gateway.sent[0], 2)
}

func TestDuplicateTriggerDeliversOnce(t *testing.T) {
	member := primitive.NewObjectID()
	sender := primitive.NewObjectID()
	threadID := primitive.NewObjectID()
	messageID := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		member: {activeToken(member, "tok-1")},
	}}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{member}}, gateway, nil)

	first, err := svc.NotifyThreadMessage(context.Background(), threadID, messageID, sender, "Alice", "hi")
	require.NoError(t, err)

	second, err := svc.NotifyThreadMessage(context.Background(), threadID, messageID, sender, "Alice", "hi")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, gateway.calls)
	assert.Len(t, store.byTrigger, 1)
}

func TestTokenlessRecipientStillGetsInboxRow(t *testing.T) {
	withToken := primitive.NewObjectID()
	without := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		withToken: {activeToken(withToken, "tok-1")},
	}}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{withToken, without}}, gateway, nil)

	n, err := svc.NotifyUsers(context.Background(), []primitive.ObjectID{withToken, without}, "Hello", "World", nil, primitive.NewObjectID())
	require.NoError(t, err)

	// Both users get a delivery row; only one token reaches the gateway
	assert.Len(t, store.recipients[n.ID], 2)
	require.Len(t, gateway.sent, 1)
	assert.Len(t, gateway.sent[0], 1)
	assert.Equal(t, models.NotificationStatusSent, store.statuses[n.ID])
}

func TestAllTokensInvalidMarksFailedAndDeactivates(t *testing.T) {
	member := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		member: {activeToken(member, "stale-token")},
	}}
	gateway := &fakeGateway{outcome: OutcomeInvalidToken}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{member}}, gateway, nil)

	n, err := svc.NotifyUsers(context.Background(), []primitive.ObjectID{member}, "Hello", "World", nil, primitive.NewObjectID())
	require.NoError(t, err)

	assert.Equal(t, models.NotificationStatusFailed, store.statuses[n.ID])
	assert.Equal(t, []string{"stale-token"}, tokens.deactivated)
}

func TestEmptyAudienceIsMarkedSent(t *testing.T) {
	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{}}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: nil}, gateway, nil)

	n, err := svc.NotifyEvent(context.Background(), primitive.NewObjectID(), "Quiet", "Nobody attending yet", primitive.NewObjectID())
	require.NoError(t, err)

	assert.Equal(t, models.NotificationStatusSent, store.statuses[n.ID])
	assert.Equal(t, 0, gateway.calls)
}

func TestResolverErrorMakesNoWrites(t *testing.T) {
	store := newFakeStore()
	tokens := &fakeTokenStore{}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{err: ErrNotFound}, gateway, nil)

	_, err := svc.NotifyEvent(context.Background(), primitive.NewObjectID(), "x", "y", primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.byTrigger)
}

func TestTransientFailureLeavesPendingThenSweepRetries(t *testing.T) {
	member := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		member: {activeToken(member, "tok-1")},
	}}
	gateway := &fakeGateway{callErr: errors.New("gateway down")}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{member}}, gateway, nil)

	n, err := svc.NotifyUsers(context.Background(), []primitive.ObjectID{member}, "Hello", "World", nil, primitive.NewObjectID())
	require.NoError(t, err, "push failure must not fail the triggering action")
	assert.Equal(t, models.NotificationStatusPending, store.statuses[n.ID])

	// Gateway recovers; the sweep re-reads the stored audience and delivers
	gateway.callErr = nil
	gateway.outcome = OutcomeDelivered

	processed, err := svc.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, models.NotificationStatusSent, store.statuses[n.ID])

	// Nothing pending on the next sweep
	processed, err = svc.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestRateLimitedLeavesPending(t *testing.T) {
	member := primitive.NewObjectID()

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		member: {activeToken(member, "tok-1")},
	}}
	gateway := &fakeGateway{outcome: OutcomeRateLimited}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{member}}, gateway, nil)

	n, err := svc.NotifyUsers(context.Background(), []primitive.ObjectID{member}, "Hello", "World", nil, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusPending, store.statuses[n.ID])
}

func TestReminderTriggerKeyedByEvent(t *testing.T) {
	member := primitive.NewObjectID()
	event := &models.Event{
		ID:        primitive.NewObjectID(),
		Title:     "Summit",
		CreatedBy: primitive.NewObjectID(),
	}

	store := newFakeStore()
	tokens := &fakeTokenStore{byUser: map[primitive.ObjectID][]models.PushToken{
		member: {activeToken(member, "tok-1")},
	}}
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	svc := NewNotificationService(store, tokens, &fakeResolver{audience: []primitive.ObjectID{member}}, gateway, nil)

	first, err := svc.NotifyEventReminder(context.Background(), event)
	require.NoError(t, err)
	second, err := svc.NotifyEventReminder(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, gateway.calls)
}
