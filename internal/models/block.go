package models

// Block is a directed moderation relation. Its presence suppresses invites and
// message delivery between the pair in both directions.
type Block struct {
	BaseModel

	BlockerID string `gorm:"type:uuid;not null;uniqueIndex:ux_blocks_pair;index" json:"blocker_id"`
	BlockedID string `gorm:"type:uuid;not null;uniqueIndex:ux_blocks_pair;index" json:"blocked_id"`
}
