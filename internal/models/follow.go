package models

// Follow is a directed edge in the follow graph. Mutual edges unlock the
// Between the Lines eligibility check.
type Follow struct {
	BaseModel

	FollowerID string `gorm:"type:uuid;not null;uniqueIndex:ux_follows_edge;index" json:"follower_id"`
	FollowedID string `gorm:"type:uuid;not null;uniqueIndex:ux_follows_edge;index" json:"followed_id"`
}
