package models

// BTLMessage is an immutable message inside a conversation. Seq is assigned at
// write time under a thread row lock and is strictly increasing per thread;
// the composite unique index is the data-layer backstop for that ordering.
type BTLMessage struct {
	BaseModel

	ThreadID string `gorm:"type:uuid;not null;uniqueIndex:ux_btl_messages_thread_seq;index" json:"thread_id"`
	SenderID string `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	Seq      int64  `gorm:"not null;uniqueIndex:ux_btl_messages_thread_seq" json:"seq"`
}
