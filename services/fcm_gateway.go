package services

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
)

// fcmSender is the slice of the Firebase messaging client the gateway needs
type fcmSender interface {
	SendEach(ctx context.Context, messages []*messaging.Message) (*messaging.BatchResponse, error)
}

// FCMGateway adapts Firebase Cloud Messaging to the PushGateway contract.
type FCMGateway struct {
	client fcmSender
}

// NewFCMGateway builds a gateway from the initialized Firebase app
func NewFCMGateway(ctx context.Context) (*FCMGateway, error) {
	if config.FirebaseApp == nil {
		return nil, errors.New("firebase app not initialized")
	}

	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	return &FCMGateway{client: client}, nil
}

// Send delivers one batch through FCM and maps each response to a PushResult.
// Callers are responsible for keeping batches within the FCM 500-message cap.
func (g *FCMGateway) Send(ctx context.Context, messages []PushMessage) ([]PushResult, error) {
	fcmMessages := make([]*messaging.Message, 0, len(messages))
	for _, m := range messages {
		fcmMessages = append(fcmMessages, &messaging.Message{
			Token: m.Token,
			Notification: &messaging.Notification{
				Title: m.Title,
				Body:  m.Body,
			},
			Data: m.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
				Notification: &messaging.AndroidNotification{
					Sound:     "default",
					ChannelID: "pbr_fcm_channel",
				},
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						Alert: &messaging.ApsAlert{
							Title: m.Title,
							Body:  m.Body,
						},
						Sound: "default",
						Badge: func() *int { v := 1; return &v }(),
					},
				},
			},
		})
	}

	resp, err := g.client.SendEach(ctx, fcmMessages)
	if err != nil {
		return nil, fmt.Errorf("fcm batch send failed: %w", err)
	}

	results := make([]PushResult, len(messages))
	for i, sr := range resp.Responses {
		results[i] = PushResult{Token: messages[i].Token}
		if sr.Success {
			results[i].Outcome = OutcomeDelivered
			continue
		}
		results[i].Err = sr.Error
		results[i].Outcome = classifyFCMError(sr.Error)
	}

	return results, nil
}

// classifyFCMError maps an FCM per-message error to a pipeline outcome.
// Unregistered and malformed tokens are permanent; everything else is
// treated as retriable by the next sweep.
func classifyFCMError(err error) PushOutcome {
	switch {
	case messaging.IsUnregistered(err),
		messaging.IsSenderIDMismatch(err),
		errorutils.IsInvalidArgument(err):
		return OutcomeInvalidToken
	case messaging.IsQuotaExceeded(err):
		return OutcomeRateLimited
	default:
		return OutcomeTransient
	}
}
