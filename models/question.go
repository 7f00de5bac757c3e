package models

import "time"

// Question is a top-level discussion thread. AnswerNum caches the number of
// direct answers and is only ever changed by the store's counter protocol.
type Question struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Category    string    `gorm:"size:20;index" json:"category"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	Image       string    `gorm:"size:200" json:"image"`
	AnswerNum   int       `gorm:"not null;default:0" json:"answer_num"`
	CreatedTime time.Time `gorm:"autoCreateTime;index" json:"created_time"`
}
