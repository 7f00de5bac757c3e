package models

import "time"

// Group is a community. MemberNum counts agreed members including the creator.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatorID   uint      `gorm:"index;not null" json:"creator_id"`
	Name        string    `gorm:"size:100" json:"name"`
	Category    string    `gorm:"size:20;index" json:"category"`
	FrontImage  string    `gorm:"size:200" json:"front_image"`
	Desc        string    `gorm:"type:text" json:"desc"`
	Notice      string    `gorm:"type:text" json:"notice"`
	MemberNum   int       `gorm:"not null;default:1" json:"member_num"`
	PostNum     int       `gorm:"not null;default:0" json:"post_num"`
	CreatedTime time.Time `gorm:"autoCreateTime;index" json:"created_time"`
}
