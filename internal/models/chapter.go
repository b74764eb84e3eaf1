package models

// Chapter is a unit of published content. Publishing one consumes one Open
// Page; the insert and the quota decrement share a transaction.
type Chapter struct {
	BaseModel

	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Title    string `gorm:"not null" json:"title"`
	Body     string `gorm:"type:text;not null" json:"body"`
	Mood     string `gorm:"type:varchar(64)" json:"mood,omitempty"`
	Theme    string `gorm:"type:varchar(64)" json:"theme,omitempty"`

	Author *User `gorm:"foreignKey:AuthorID" json:"-"`
}
