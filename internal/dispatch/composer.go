package dispatch

import (
	"fmt"
	"time"

	"github.com/jmehdipour/domofon-gateway/internal/model"
	"github.com/jmehdipour/domofon-gateway/internal/token"
)

const (
	openLabel   = "🔓 Открыть дверь"
	ignoreLabel = "⛔️ Не открывать"

	noSnapshotCaveat = "⚠️ _Снимок с камеры недоступен_"
)

// Compose builds the outbound call notification: body text, optional
// image, and exactly two actions (open / ignore) bound to the event's
// device. Pure: no I/O, deterministic given inputs, clock injected.
func Compose(event model.CallEvent, recipient model.TenantIdentity, snapshot model.SnapshotReference, now time.Time) model.Notification {
	text := fmt.Sprintf(
		"🔔 *Входящий вызов в домофон!*\n\n"+
			"👋 Кто-то хочет войти\n"+
			"⏰ Время: %s\n\n"+
			"Пожалуйста, выберите действие:",
		now.Format("15:04:05"),
	)

	if snapshot.Empty() {
		// Mandatory degraded-mode line so the recipient understands why
		// no image arrived.
		text += "\n\n" + noSnapshotCaveat
	}

	return model.Notification{
		Text:     text,
		ImageURL: snapshot.ImageURL,
		Actions: []model.Action{
			{Label: openLabel, Token: token.Encode(token.KindOpen, event.DeviceID)},
			{Label: ignoreLabel, Token: token.Encode(token.KindIgnore, event.DeviceID)},
		},
	}
}
