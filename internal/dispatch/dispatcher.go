// Package dispatch orchestrates one inbound call event: validate, resolve
// the recipient, fetch a best-effort snapshot, compose, deliver. Terminal
// on first failure; nothing here retries — the boundary's status code
// pushes retry policy to the calling system.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/access"
	"github.com/jmehdipour/domofon-gateway/internal/gateway"
	"github.com/jmehdipour/domofon-gateway/internal/metrics"
	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/session"
	"github.com/jmehdipour/domofon-gateway/internal/util"
	"go.uber.org/zap"
)

var (
	ErrInvalidEvent        = errors.New("invalid call event")
	ErrRecipientUnresolved = errors.New("recipient unresolved")
	ErrDeliveryFailed      = errors.New("notification delivery failed")
)

// Terminal stages reported in outcomes and metrics.
const (
	StageInvalid    = "invalid"
	StageUnresolved = "unresolved"
	StageFailed     = "failed"
	StageDelivered  = "delivered"
)

// AccessAPI is the slice of the access client the dispatcher needs.
type AccessAPI interface {
	CheckTenant(ctx context.Context, tenantID int64) (model.TenantIdentity, error)
	CameraSnapshot(ctx context.Context, deviceID, tenantID int64) (model.SnapshotReference, error)
}

// Outcome is the terminal dispatch result reported to the boundary and
// the log; it never reaches the end user.
type Outcome struct {
	Success bool
	Stage   string
	EventID string
	Address string
}

type Dispatcher struct {
	access   AccessAPI
	gw       gateway.Gateway
	sessions *session.Store
	now      func() time.Time
	log      *zap.Logger
}

func NewDispatcher(api AccessAPI, gw gateway.Gateway, sessions *session.Store, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	return &Dispatcher{
		access:   api,
		gw:       gw,
		sessions: sessions,
		now:      time.Now,
		log:      log.With(zap.String("component", "dispatch")),
	}
}

// Dispatch runs the per-event pipeline. Snapshot unavailability never
// fails a dispatch; everything else short-circuits with a typed error.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.CallEvent) (Outcome, error) {
	eventID := util.New()
	log := d.log.With(
		zap.String("event_id", eventID),
		zap.Int64("device_id", event.DeviceID),
		zap.Int64("tenant_id", event.TenantID),
	)

	if !event.Valid() {
		metrics.CallsTotal.WithLabelValues(StageInvalid).Inc()
		return Outcome{Stage: StageInvalid, EventID: eventID}, ErrInvalidEvent
	}

	recipient, err := d.access.CheckTenant(ctx, event.TenantID)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			metrics.CallsTotal.WithLabelValues(StageUnresolved).Inc()
			log.Info("tenant not known to access api")
			return Outcome{Stage: StageUnresolved, EventID: eventID}, ErrRecipientUnresolved
		}
		metrics.CallsTotal.WithLabelValues(StageFailed).Inc()
		log.Error("tenant resolution failed", zap.Error(err))
		return Outcome{Stage: StageFailed, EventID: eventID}, fmt.Errorf("resolve recipient: %w", err)
	}

	address := recipient.NotifyAddress
	if address == "" && d.sessions != nil {
		address, _ = d.sessions.Chat(recipient.TenantID)
	}
	if address == "" {
		metrics.CallsTotal.WithLabelValues(StageUnresolved).Inc()
		log.Info("tenant has no notify address")
		return Outcome{Stage: StageUnresolved, EventID: eventID}, ErrRecipientUnresolved
	}

	snapshot, err := d.access.CameraSnapshot(ctx, event.DeviceID, event.TenantID)
	if err != nil {
		// The client already degrades internally; guard anyway.
		log.Warn("snapshot fetch errored, continuing without image", zap.Error(err))
		snapshot = model.SnapshotReference{}
	}

	note := Compose(event, recipient, snapshot, d.now())

	receipt, err := d.gw.Deliver(ctx, address, note)
	if err != nil {
		metrics.CallsTotal.WithLabelValues(StageFailed).Inc()
		log.Error("delivery failed", zap.String("address", address), zap.Error(err))
		return Outcome{Stage: StageFailed, EventID: eventID, Address: address},
			fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	metrics.CallsTotal.WithLabelValues(StageDelivered).Inc()
	log.Info("call notification delivered",
		zap.String("address", address),
		zap.String("message_id", receipt.MessageID),
		zap.Bool("with_image", !snapshot.Empty()),
	)

	return Outcome{Success: true, Stage: StageDelivered, EventID: eventID, Address: address}, nil
}
