package paddle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/quotagate/pkg/billing"
)

const (
	customDataUserID    = "user_id"
	customDataProductID = "product_id"
)

// recurring transactions are renewals; checkout transactions are covered by subscription.activated
const originRecurring = "subscription_recurring"

type notification struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt string          `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type notificationData struct {
	ID             string             `json:"id"`
	SubscriptionID string             `json:"subscription_id"`
	Origin         string             `json:"origin"`
	CustomData     map[string]any     `json:"custom_data"`
	Items          []notificationItem `json:"items"`
}

type notificationItem struct {
	PriceID string `json:"price_id"`
	Price   *struct {
		ID string `json:"id"`
	} `json:"price"`
}

// ParseEvent decodes a Paddle notification into a normalized billing event.
// Events the billing core does not act on are returned as billing.EventIgnored.
func ParseEvent(payload []byte) (*billing.WebhookEvent, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if n.EventType == "" {
		return nil, errors.New("webhook payload has no event_type")
	}

	var data notificationData
	if len(n.Data) > 0 {
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse %s data: %w", n.EventType, err)
		}
	}

	event := &billing.WebhookEvent{
		ID:             n.EventID,
		Type:           mapEventType(n.EventType, data.Origin),
		ProviderEvent:  n.EventType,
		ExternalPlanID: data.priceID(),
	}

	if strings.HasPrefix(n.EventType, "transaction.") {
		event.ExternalSubscriptionID = data.SubscriptionID
	} else {
		event.ExternalSubscriptionID = data.ID
	}

	if t, err := time.Parse(time.RFC3339, n.OccurredAt); err == nil {
		event.OccurredAt = t
	}

	if v, ok := data.CustomData[customDataUserID].(string); ok {
		if id, err := uuid.Parse(v); err == nil {
			event.UserID = id
		}
	}
	if v, ok := data.CustomData[customDataProductID].(string); ok {
		event.ProductID = v
	}

	if event.Type != billing.EventIgnored && event.ExternalSubscriptionID == "" {
		return nil, fmt.Errorf("%s event without subscription id", n.EventType)
	}

	return event, nil
}

func (d notificationData) priceID() string {
	if len(d.Items) == 0 {
		return ""
	}
	if d.Items[0].Price != nil && d.Items[0].Price.ID != "" {
		return d.Items[0].Price.ID
	}
	return d.Items[0].PriceID
}

// mapEventType maps Paddle event names to billing event types.
func mapEventType(eventType, origin string) billing.EventType {
	switch eventType {
	case "subscription.activated", "subscription.created":
		return billing.EventActivated
	case "transaction.completed":
		if origin == originRecurring {
			return billing.EventCharged
		}
		return billing.EventIgnored
	case "subscription.resumed":
		return billing.EventCharged
	case "subscription.canceled":
		return billing.EventCancelled
	case "transaction.payment_failed", "subscription.past_due":
		return billing.EventPaymentFailed
	case "subscription.paused":
		return billing.EventHalted
	default:
		return billing.EventIgnored
	}
}
