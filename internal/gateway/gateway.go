// Package gateway defines the messaging-gateway boundary: the external
// chat system that delivers notifications and feeds user responses back.
package gateway

import (
	"context"

	"github.com/jmehdipour/domofon-gateway/internal/model"
)

// DeliveryReceipt identifies a delivered notification in the gateway's
// namespace.
type DeliveryReceipt struct {
	MessageID string
}

// Gateway delivers one composed notification to an opaque address.
type Gateway interface {
	Deliver(ctx context.Context, address string, note model.Notification) (DeliveryReceipt, error)
}
