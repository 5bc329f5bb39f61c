package model

import "time"

// Kind is the display category of a notification.
type Kind string

const (
	KindInfo       Kind = "info"
	KindSuccess    Kind = "success"
	KindWarning    Kind = "warning"
	KindError      Kind = "error"
	KindCollection Kind = "collection"
	KindQuality    Kind = "quality"
	KindTransfer   Kind = "transfer"
)

// ParseKind maps a payload type string to a Kind. Unknown or empty
// values fall back to KindInfo.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindSuccess, KindWarning, KindError,
		KindCollection, KindQuality, KindTransfer:
		return k
	default:
		return KindInfo
	}
}

// Notification is a single push event received from the logistics
// backend and kept in the local inbox.
type Notification struct {
	// ID is the unique identifier assigned when the event arrived.
	ID string `json:"id" db:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Kind is the display category (info, quality, transfer, ...).
	Kind Kind `json:"kind" db:"kind"`

	// Source names the transport that delivered the event.
	Source string `json:"source" db:"source"`

	// CreatedAt is when the event was received.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// IsRead is set once the user acknowledges the notification.
	// It never goes back to false.
	IsRead bool `json:"is_read" db:"is_read"`
}
