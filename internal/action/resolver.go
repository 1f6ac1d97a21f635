// Package action processes the tenant's asynchronous response to a call
// notification: decode the token, claim it exactly once, and run the
// door command when asked to.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/access"
	"github.com/jmehdipour/domofon-gateway/internal/metrics"
	"github.com/jmehdipour/domofon-gateway/internal/token"
	"go.uber.org/zap"
)

var (
	ErrInvalidAction  = errors.New("invalid action")
	ErrAlreadyHandled = errors.New("action already handled")
)

// User-facing confirmation and failure texts. Full error detail goes to
// the log only.
const (
	textIgnored        = "🚫 Вызов отклонён. Дверь осталась закрытой."
	textAlreadyHandled = "ℹ️ Этот вызов уже обработан."
	textValidationErr  = "❌ Не удалось открыть дверь: домофон отклонил команду. Проверьте выбранный домофон."
	textServerErr      = "❌ Ошибка сервера. Попробуйте ещё раз позже."
)

// DoorOpener is the slice of the access client the resolver needs.
type DoorOpener interface {
	OpenDoor(ctx context.Context, deviceID, tenantID, doorID int64) error
}

// Outcome is the terminal result of one resolved action. UserText is the
// short confirmation for the chat; everything else is operator-facing.
type Outcome struct {
	Acknowledged bool
	Kind         token.Kind
	DeviceID     int64
	OpenedAt     time.Time
	UserText     string
}

type Resolver struct {
	doors       DoorOpener
	claims      Claims
	openTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewResolver(doors DoorOpener, claims Claims, openTimeout time.Duration, log *zap.Logger) *Resolver {
	if openTimeout <= 0 {
		openTimeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Resolver{
		doors:       doors,
		claims:      claims,
		openTimeout: openTimeout,
		now:         time.Now,
		log:         log.With(zap.String("component", "action")),
	}
}

// Resolve consumes one action token on behalf of a tenant. A malformed or
// foreign token never reaches the access API; a token seen before yields
// ErrAlreadyHandled with no backend call.
func (r *Resolver) Resolve(ctx context.Context, tok string, tenantID int64) (Outcome, error) {
	kind, deviceID, err := token.Decode(tok)
	if err != nil || (kind != token.KindOpen && kind != token.KindIgnore) {
		metrics.ActionsTotal.WithLabelValues(string(kind), "invalid").Inc()
		return Outcome{}, ErrInvalidAction
	}

	log := r.log.With(
		zap.String("kind", string(kind)),
		zap.Int64("device_id", deviceID),
		zap.Int64("tenant_id", tenantID),
	)

	first, err := r.claims.Claim(ctx, tok)
	if err != nil {
		// Fail closed: without a claim we cannot guarantee at-most-once.
		log.Error("claim store unavailable", zap.Error(err))
		return Outcome{}, fmt.Errorf("claim token: %w", err)
	}
	if !first {
		metrics.ActionsTotal.WithLabelValues(string(kind), "duplicate").Inc()
		log.Info("duplicate action rejected")
		return Outcome{Kind: kind, DeviceID: deviceID, UserText: textAlreadyHandled}, ErrAlreadyHandled
	}

	if kind == token.KindIgnore {
		metrics.ActionsTotal.WithLabelValues(string(kind), "ok").Inc()
		log.Info("call ignored by tenant")
		return Outcome{
			Acknowledged: true,
			Kind:         kind,
			DeviceID:     deviceID,
			UserText:     textIgnored,
		}, nil
	}

	// The open command must be allowed to complete even if the inbound
	// transport goes away: once it reached the backend the door state is
	// unknown, so detach from the caller's cancellation and keep our own
	// bound.
	openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.openTimeout)
	defer cancel()

	if err := r.doors.OpenDoor(openCtx, deviceID, tenantID, 0); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(kind), "error").Inc()
		log.Error("open door failed", zap.Error(err))

		text := textServerErr
		var apiErr *access.APIError
		if errors.As(err, &apiErr) && apiErr.Validation() {
			text = textValidationErr
		}

		return Outcome{Kind: kind, DeviceID: deviceID, UserText: text}, err
	}

	openedAt := r.now()
	metrics.ActionsTotal.WithLabelValues(string(kind), "ok").Inc()
	log.Info("door opened", zap.Time("opened_at", openedAt))

	return Outcome{
		Acknowledged: true,
		Kind:         kind,
		DeviceID:     deviceID,
		OpenedAt:     openedAt,
		UserText: fmt.Sprintf(
			"✅ *Дверь успешно открыта*\n\n"+
				"🕐 Время: %s\n"+
				"🚪 Домофон: #%d\n"+
				"📍 Статус: Успешно\n\n"+
				"_Дверь будет открыта в течение нескольких секунд_",
			openedAt.Format("15:04:05"), deviceID,
		),
	}, nil
}
