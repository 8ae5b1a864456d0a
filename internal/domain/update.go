package domain

// UpdateKind discriminates the inbound event union.
type UpdateKind string

const (
	UpdateKindMessage  UpdateKind = "MESSAGE"
	UpdateKindCallback UpdateKind = "CALLBACK"
)

// Update is one inbound chat event: either a text message or a button
// callback. EventID identifies the delivery for the dedup gate; the
// transport may redeliver the same EventID any number of times.
type Update struct {
	Kind    UpdateKind
	EventID string
	ChatID  int64

	// Text is set for messages.
	Text string

	// CallbackData and MessageID are set for callbacks. MessageID is
	// the message carrying the pressed button, used to edit it away.
	CallbackData string
	MessageID    int64
}
