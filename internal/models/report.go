package models

import (
	"time"

	"gorm.io/datatypes"
)

// Report status workflow. Reports never mutate the reported resource; they are
// routed to the moderation process.
const (
	ReportStatusPending   = "pending"
	ReportStatusReviewing = "reviewing"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Report is an append-only moderation record targeting a conversation, an
// account, or a chapter (exactly one must be set).
type Report struct {
	BaseModel

	ReporterID string `gorm:"type:uuid;not null;index" json:"reporter_id"`

	ThreadID          *string `gorm:"type:uuid;index" json:"thread_id,omitempty"`
	ReportedUserID    *string `gorm:"type:uuid;index" json:"reported_user_id,omitempty"`
	ReportedChapterID *string `gorm:"type:uuid;index" json:"reported_chapter_id,omitempty"`

	Reason   string         `gorm:"type:varchar(64);not null" json:"reason"`
	Details  string         `gorm:"type:text" json:"details,omitempty"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`

	Status     string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
