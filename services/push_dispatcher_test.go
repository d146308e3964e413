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

func testNotification() *models.Notification {
	return &models.Notification{
		ID:    primitive.NewObjectID(),
		Type:  models.NotificationTypeEventUpdate,
		Title: "Venue change",
		Body:  "New hall",
		Data:  map[string]string{"eventId": primitive.NewObjectID().Hex()},
	}
}

func TestDispatchChunksLargeBatches(t *testing.T) {
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	tokens := &fakeTokenStore{}
	d := NewPushDispatcher(gateway, tokens)
	d.batchSize = 2

	userID := primitive.NewObjectID()
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {
			activeToken(userID, "t1"),
			activeToken(userID, "t2"),
			activeToken(userID, "t3"),
			activeToken(userID, "t4"),
			activeToken(userID, "t5"),
		},
	}

	summary := d.Dispatch(context.Background(), testNotification(), tokensByUser)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 5, summary.Delivered)
	assert.Equal(t, 3, gateway.calls)
	assert.Len(t, gateway.sent[0], 2)
	assert.Len(t, gateway.sent[2], 1)
}

func TestDispatchSkipsInactiveTokens(t *testing.T) {
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	d := NewPushDispatcher(gateway, &fakeTokenStore{})

	userID := primitive.NewObjectID()
	stale := activeToken(userID, "stale")
	stale.IsActive = false
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {activeToken(userID, "live"), stale},
	}

	summary := d.Dispatch(context.Background(), testNotification(), tokensByUser)

	assert.Equal(t, 1, summary.Attempted)
	require.Len(t, gateway.sent, 1)
	assert.Equal(t, "live", gateway.sent[0][0].Token)
}

func TestDispatchDeactivatesInvalidTokens(t *testing.T) {
	gateway := &fakeGateway{outcome: OutcomeInvalidToken}
	tokens := &fakeTokenStore{}
	d := NewPushDispatcher(gateway, tokens)

	userID := primitive.NewObjectID()
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {activeToken(userID, "gone-1"), activeToken(userID, "gone-2")},
	}

	summary := d.Dispatch(context.Background(), testNotification(), tokensByUser)

	assert.Equal(t, 2, summary.Invalid)
	assert.Equal(t, 0, summary.Delivered)
	assert.ElementsMatch(t, []string{"gone-1", "gone-2"}, tokens.deactivated)
}

func TestDispatchWholeCallFailureIsTransient(t *testing.T) {
	gateway := &fakeGateway{callErr: errors.New("503 from upstream")}
	d := NewPushDispatcher(gateway, &fakeTokenStore{})

	userID := primitive.NewObjectID()
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {activeToken(userID, "t1"), activeToken(userID, "t2")},
	}

	summary := d.Dispatch(context.Background(), testNotification(), tokensByUser)

	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Transient)
	assert.Equal(t, 0, summary.Delivered)
}

func TestDispatchAddsDeepLinkData(t *testing.T) {
	gateway := &fakeGateway{outcome: OutcomeDelivered}
	d := NewPushDispatcher(gateway, &fakeTokenStore{})

	n := testNotification()
	userID := primitive.NewObjectID()
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {activeToken(userID, "t1")},
	}

	d.Dispatch(context.Background(), n, tokensByUser)

	require.Len(t, gateway.sent, 1)
	data := gateway.sent[0][0].Data
	assert.Equal(t, n.ID.Hex(), data["notificationId"])
	assert.Equal(t, n.Type, data["type"])
	assert.Equal(t, n.Data["eventId"], data["eventId"])
}

func TestDispatchWithoutGatewayDefersEverything(t *testing.T) {
	d := NewPushDispatcher(nil, &fakeTokenStore{})

	userID := primitive.NewObjectID()
	tokensByUser := map[primitive.ObjectID][]models.PushToken{
		userID: {activeToken(userID, "t1")},
	}

	summary := d.Dispatch(context.Background(), testNotification(), tokensByUser)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Transient)
}
