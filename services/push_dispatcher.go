package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ThinkModa/pbr-mvp-sub002/models"
)

// PushOutcome classifies one token's delivery result after a gateway call.
type PushOutcome string

const (
	OutcomeDelivered    PushOutcome = "delivered"
	OutcomeInvalidToken PushOutcome = "invalid_token"
	OutcomeTransient    PushOutcome = "transient_error"
	OutcomeRateLimited  PushOutcome = "rate_limited"
)

// PushMessage is one outbound message addressed to a single device token.
type PushMessage struct {
	Token    string
	Platform string
	Title    string
	Body     string
	Data     map[string]string
}

// PushResult is the gateway's verdict for one message in a batch.
type PushResult struct {
	Token   string
	Outcome PushOutcome
	Err     error
}

// PushGateway is the abstract contract for the external push service.
// Implementations must return one result per message when the call itself
// succeeds, and an error only for whole-call failures.
type PushGateway interface {
	Send(ctx context.Context, messages []PushMessage) ([]PushResult, error)
}

const (
	// FCM caps batch sends at 500 messages per call
	defaultBatchSize = 500
	gatewayTimeout   = 20 * time.Second
)

// DispatchSummary aggregates per-token outcomes for one notification.
type DispatchSummary struct {
	Attempted   int
	Delivered   int
	Invalid     int
	Transient   int
	RateLimited int
}

// PushDispatcher flattens (user, token) pairs into gateway batches and
// interprets the per-token outcomes. Delivery is strictly best-effort: no
// token blocks any other, and nothing here retries synchronously — transient
// failures are left for the next sweep.
type PushDispatcher struct {
	gateway   PushGateway
	tokens    TokenStore
	batchSize int
}

// NewPushDispatcher creates a dispatcher over the given gateway and token store
func NewPushDispatcher(gateway PushGateway, tokens TokenStore) *PushDispatcher {
	return &PushDispatcher{
		gateway:   gateway,
		tokens:    tokens,
		batchSize: defaultBatchSize,
	}
}

// Dispatch sends the notification to every active token in tokensByUser and
// returns the aggregated summary. Tokens the gateway reports as permanently
// invalid are deactivated so future sweeps skip them.
func (d *PushDispatcher) Dispatch(ctx context.Context, notification *models.Notification, tokensByUser map[primitive.ObjectID][]models.PushToken) DispatchSummary {
	// Every message carries the notification ID and domain IDs so the
	// client can deep-link when the user taps it.
	data := make(map[string]string, len(notification.Data)+2)
	for k, v := range notification.Data {
		data[k] = v
	}
	data["notificationId"] = notification.ID.Hex()
	data["type"] = notification.Type

	var batch []PushMessage
	for _, tokens := range tokensByUser {
		for _, t := range tokens {
			if !t.IsActive {
				continue
			}
			batch = append(batch, PushMessage{
				Token:    t.Token,
				Platform: t.Platform,
				Title:    notification.Title,
				Body:     notification.Body,
				Data:     data,
			})
		}
	}

	summary := DispatchSummary{Attempted: len(batch)}
	if len(batch) == 0 {
		return summary
	}
	if d.gateway == nil {
		// No gateway configured: leave everything pending for a sweep
		// after push credentials come up
		log.Printf("No push gateway configured, deferring %d tokens", len(batch))
		summary.Transient = len(batch)
		return summary
	}

	var invalid []string
	for start := 0; start < len(batch); start += d.batchSize {
		end := start + d.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		callCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
		results, err := d.gateway.Send(callCtx, chunk)
		cancel()
		if err != nil {
			// Whole-call failure (network error, non-success status):
			// classified as transient so the sweep retries these tokens
			log.Printf("Push gateway call failed for %d tokens: %v", len(chunk), err)
			summary.Transient += len(chunk)
			continue
		}

		for _, r := range results {
			switch r.Outcome {
			case OutcomeDelivered:
				summary.Delivered++
			case OutcomeInvalidToken:
				summary.Invalid++
				invalid = append(invalid, r.Token)
			case OutcomeRateLimited:
				summary.RateLimited++
			default:
				summary.Transient++
			}
		}
	}

	if len(invalid) > 0 {
		if err := d.tokens.Deactivate(ctx, invalid); err != nil {
			log.Printf("Error deactivating %d invalid push tokens: %v", len(invalid), err)
		} else {
			log.Printf("Deactivated %d invalid push tokens", len(invalid))
		}
	}

	return summary
}
