package models

import "time"

// Invite status values. pending is the only state that accepts transitions.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// BTLInvite proposes opening a Between the Lines conversation. It must carry a
// note or a quoted line, and resolves exactly once.
//
// PendingKey holds "senderID:recipientID" while the invite is pending and is
// cleared on resolution; its unique index stops duplicate pending invites for
// the same directed pair without blocking a fresh invite later.
type BTLInvite struct {
	BaseModel

	SenderID    string `gorm:"type:uuid;not null;index" json:"sender_id"`
	RecipientID string `gorm:"type:uuid;not null;index" json:"recipient_id"`

	Note       string `gorm:"type:text" json:"note,omitempty"`
	QuotedLine string `gorm:"type:text" json:"quoted_line,omitempty"`

	Status     string  `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PendingKey *string `gorm:"uniqueIndex" json:"-"`

	// ThreadID references the conversation created on acceptance.
	ThreadID    *string    `gorm:"type:uuid" json:"thread_id,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// PendingPairKey builds the uniqueness key guarding duplicate pending invites.
func PendingPairKey(senderID, recipientID string) string {
	return senderID + ":" + recipientID
}
