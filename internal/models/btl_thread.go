package models

import "time"

// Thread status values.
const (
	ThreadStatusOpen   = "open"
	ThreadStatusClosed = "closed"
)

// BTLThread is a two-party conversation created when an invite is accepted.
// Participants are stored in lexicographic ID order so the pair is canonical.
//
// OpenKey holds the canonical pair key while the thread is open and is set to
// NULL on close. The unique index on it is what enforces "at most one open
// thread per pair" at the data layer, across concurrent service instances.
type BTLThread struct {
	BaseModel

	ParticipantLowID  string `gorm:"type:uuid;not null;index" json:"participant_low_id"`
	ParticipantHighID string `gorm:"type:uuid;not null;index" json:"participant_high_id"`

	PairKey string  `gorm:"not null;index" json:"-"`
	OpenKey *string `gorm:"uniqueIndex" json:"-"`

	Status   string     `gorm:"type:varchar(16);not null;default:'open'" json:"status"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	ClosedBy *string    `gorm:"type:uuid" json:"closed_by,omitempty"`

	Messages []BTLMessage `gorm:"foreignKey:ThreadID" json:"-"`
}

// ThreadPairKey returns the canonical unordered pair key for two account IDs.
func ThreadPairKey(a, b string) string {
	low, high := OrderPair(a, b)
	return low + ":" + high
}

// OrderPair returns the two IDs in canonical (lexicographic) order.
func OrderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether the account takes part in the thread.
func (t *BTLThread) HasParticipant(accountID string) bool {
	return accountID != "" && (t.ParticipantLowID == accountID || t.ParticipantHighID == accountID)
}

// OtherParticipant returns the counterpart of the supplied participant.
func (t *BTLThread) OtherParticipant(accountID string) string {
	switch accountID {
	case t.ParticipantLowID:
		return t.ParticipantHighID
	case t.ParticipantHighID:
		return t.ParticipantLowID
	default:
		return ""
	}
}
