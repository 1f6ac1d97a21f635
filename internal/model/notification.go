package model

// Action is one inline control attached to a delivered notification. Token
// is the self-describing correlation value (see internal/token).
type Action struct {
	Label string
	Token string
}

// Notification is the composed outbound message: body text, optional
// image, and the action controls. Built by the composer, delivered by the
// messaging gateway.
type Notification struct {
	Text     string
	ImageURL string
	Actions  []Action
}
