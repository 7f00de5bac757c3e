package models

import "time"

const (
	MemberAgreed  = "agreed"
	MemberRefused = "refused"
)

// GroupMember is a join request and, once agreed, a membership.
// A nil Status means the request is still pending.
type GroupMember struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex:uk_member_user_group" json:"user_id"`
	GroupID     uint       `gorm:"not null;index;uniqueIndex:uk_member_user_group" json:"group_id"`
	Status      *string    `gorm:"size:10" json:"status"`
	ApplyReason string     `gorm:"size:200" json:"apply_reason"`
	Reply       string     `gorm:"size:200" json:"reply"`
	ReplyTime   *time.Time `json:"reply_time"`
	CreatedTime time.Time  `gorm:"autoCreateTime" json:"created_time"`
}

// Pending reports whether no decision has been made yet.
func (m GroupMember) Pending() bool {
	return m.Status == nil
}

// ValidMemberStatus reports whether s is a decision a moderator may take.
func ValidMemberStatus(s string) bool {
	return s == MemberAgreed || s == MemberRefused
}
