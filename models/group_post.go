package models

import "time"

// GroupPost is a thread inside a group; each one bumps Group.PostNum.
type GroupPost struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	GroupID     uint      `gorm:"index;not null" json:"group_id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	CreatedTime time.Time `gorm:"autoCreateTime;index" json:"created_time"`
}
