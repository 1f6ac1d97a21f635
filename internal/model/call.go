package model

// CallEvent is the inbound "someone is calling" trigger. It is built at the
// webhook (or Kafka) boundary and consumed once by the dispatcher; it is
// never persisted beyond the request lifetime.
type CallEvent struct {
	DeviceID int64 `json:"domofon_id"`
	TenantID int64 `json:"tenant_id"`
}

// Valid reports whether both identifiers are positive.
func (e CallEvent) Valid() bool {
	return e.DeviceID > 0 && e.TenantID > 0
}

// TenantIdentity is the resolved notification recipient.
type TenantIdentity struct {
	TenantID    int64  `json:"tenant_id"`
	DisplayName string `json:"name"`
	// NotifyAddress is an opaque address in the messaging gateway's
	// namespace (Telegram chat id). May be empty when the backend has no
	// binding of its own; the dispatcher then falls back to the session
	// store's reverse index.
	NotifyAddress string `json:"telegram_chat_id"`
	// Privileged is reserved for future authorization checks. Carried
	// through, never enforced here.
	Privileged bool `json:"is_super_user"`
}

// SnapshotReference is optional visual context for a call notification.
// An empty ImageURL is a normal outcome (camera offline, unsupported
// format), not an error.
type SnapshotReference struct {
	ImageURL string `json:"jpeg"`
}

func (s SnapshotReference) Empty() bool { return s.ImageURL == "" }
