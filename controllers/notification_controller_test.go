package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

type testValidator struct {
	validator *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.validator.Struct(i)
}

type fakeInbox struct {
	items      []models.UserNotificationView
	markedRead []primitive.ObjectID
	unread     int64
}

func (f *fakeInbox) InboxFor(_ context.Context, _ primitive.ObjectID, _ int64) ([]models.UserNotificationView, error) {
	return f.items, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, id, _ primitive.ObjectID) error {
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *fakeInbox) MarkAllRead(_ context.Context, _ primitive.ObjectID) (int64, error) {
	n := f.unread
	f.unread = 0
	return n, nil
}

func (f *fakeInbox) UnreadCount(_ context.Context, _ primitive.ObjectID) (int64, error) {
	return f.unread, nil
}

type fakeRegistry struct {
	registered map[string]string
	removed    []string
}

func (f *fakeRegistry) Register(_ context.Context, _ primitive.ObjectID, token, platform string) error {
	if f.registered == nil {
		f.registered = make(map[string]string)
	}
	f.registered[token] = platform
	return nil
}

func (f *fakeRegistry) Remove(_ context.Context, _ primitive.ObjectID, token string) error {
	f.removed = append(f.removed, token)
	return nil
}

type fakeNotifier struct {
	sentTo    []primitive.ObjectID
	processed int
}

func (f *fakeNotifier) NotifyUsers(_ context.Context, userIDs []primitive.ObjectID, _, _ string, _ map[string]string, _ primitive.ObjectID) (*models.Notification, error) {
	f.sentTo = append(f.sentTo, userIDs...)
	return &models.Notification{ID: primitive.NewObjectID(), Status: models.NotificationStatusSent}, nil
}

func (f *fakeNotifier) ProcessPending(_ context.Context) (int, error) {
	return f.processed, nil
}

func newTestContext(t *testing.T, method, path, body string, userID primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	c.Set("user", &jwt.Token{Claims: &middleware.JwtCustomClaims{
		UserID: userID.Hex(),
		Email:  "user@example.com",
		Role:   "admin",
	}})
	return c, rec
}

func TestRegisterTokenStoresDevice(t *testing.T) {
	registry := &fakeRegistry{}
	nc := NewNotificationController(&fakeInbox{}, registry, &fakeNotifier{})

	body := `{"token":"fcm-abc","platform":"ios"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/tokens", body, primitive.NewObjectID())

	require.NoError(t, nc.RegisterToken(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ios", registry.registered["fcm-abc"])
}

func TestRegisterTokenRejectsUnknownPlatform(t *testing.T) {
	registry := &fakeRegistry{}
	nc := NewNotificationController(&fakeInbox{}, registry, &fakeNotifier{})

	body := `{"token":"fcm-abc","platform":"blackberry"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/tokens", body, primitive.NewObjectID())

	require.NoError(t, nc.RegisterToken(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, registry.registered)
}

func TestRemoveToken(t *testing.T) {
	registry := &fakeRegistry{}
	nc := NewNotificationController(&fakeInbox{}, registry, &fakeNotifier{})

	c, rec := newTestContext(t, http.MethodDelete, "/api/notifications/tokens", `{"token":"fcm-abc"}`, primitive.NewObjectID())

	require.NoError(t, nc.RemoveToken(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"fcm-abc"}, registry.removed)
}

func TestListMyNotifications(t *testing.T) {
	inbox := &fakeInbox{items: []models.UserNotificationView{
		{ID: primitive.NewObjectID(), Notification: models.Notification{Title: "Venue change"}},
	}}
	nc := NewNotificationController(inbox, &fakeRegistry{}, &fakeNotifier{})

	c, rec := newTestContext(t, http.MethodGet, "/api/notifications", "", primitive.NewObjectID())

	require.NoError(t, nc.ListMyNotifications(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	items, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	inbox := &fakeInbox{unread: 3}
	nc := NewNotificationController(inbox, &fakeRegistry{}, &fakeNotifier{})

	id := primitive.NewObjectID()
	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/"+id.Hex()+"/read", "", primitive.NewObjectID())
	c.SetParamNames("id")
	c.SetParamValues(id.Hex())

	require.NoError(t, nc.MarkRead(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []primitive.ObjectID{id}, inbox.markedRead)

	c, rec = newTestContext(t, http.MethodGet, "/api/notifications/unread-count", "", primitive.NewObjectID())
	require.NoError(t, nc.UnreadCount(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unread":3`)
}

func TestSendDirectResolvesTargets(t *testing.T) {
	notifier := &fakeNotifier{}
	nc := NewNotificationController(&fakeInbox{}, &fakeRegistry{}, notifier)

	target := primitive.NewObjectID()
	body := `{"userIds":["` + target.Hex() + `"],"title":"Hello","body":"World"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/send", body, primitive.NewObjectID())

	require.NoError(t, nc.SendDirect(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []primitive.ObjectID{target}, notifier.sentTo)
}

func TestSendDirectRejectsMalformedID(t *testing.T) {
	notifier := &fakeNotifier{}
	nc := NewNotificationController(&fakeInbox{}, &fakeRegistry{}, notifier)

	body := `{"userIds":["not-an-id"],"title":"Hello","body":"World"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/send", body, primitive.NewObjectID())

	require.NoError(t, nc.SendDirect(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, notifier.sentTo)
}

func TestProcessPendingReportsCount(t *testing.T) {
	notifier := &fakeNotifier{processed: 7}
	nc := NewNotificationController(&fakeInbox{}, &fakeRegistry{}, notifier)

	c, rec := newTestContext(t, http.MethodPost, "/api/notifications/process", "", primitive.NewObjectID())

	require.NoError(t, nc.ProcessPending(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"processed":7`)
}
