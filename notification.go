package courier

// Payload carries the displayable content of a notification.
type Payload struct {
	// Title is the notification headline; plain rendering uses it as the
	// email subject.
	Title string
	// Description is an optional longer text.
	Description string
	// Link is an optional URL pointing at the subject of the notification.
	Link string
}

// Notification is a single notification event to deliver.
// Immutable once handed to the processor.
type Notification struct {
	// ID identifies the notification.
	ID string
	// UserID is the identifier of the user the notification is about.
	// Empty means the notification is not tied to a single user, which
	// makes it eligible for broadcast delivery.
	UserID string
	// Payload is the notification content.
	Payload Payload
}

// RecipientType selects the addressing mode of a send.
type RecipientType string

// Addressing modes.
const (
	// RecipientBroadcast addresses an open-ended set of recipients.
	RecipientBroadcast RecipientType = "broadcast"
	// RecipientTargeted addresses the single user named by the notification.
	RecipientTargeted RecipientType = "targeted"
)

// Recipients is the recipient directive of a send.
type Recipients struct {
	// Type is the addressing mode.
	Type RecipientType
}

// SendOptions carries per-send delivery directives.
type SendOptions struct {
	// Recipients selects the addressing mode.
	Recipients Recipients
}

// Broadcast is a convenience SendOptions for broadcast delivery.
func Broadcast() SendOptions {
	return SendOptions{Recipients: Recipients{Type: RecipientBroadcast}}
}

// Targeted is a convenience SendOptions for single-target delivery.
func Targeted() SendOptions {
	return SendOptions{Recipients: Recipients{Type: RecipientTargeted}}
}
