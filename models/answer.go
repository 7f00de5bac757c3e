package models

import (
	"errors"
	"time"
)

// AnswerKind discriminates the two roles an Answer row can play.
type AnswerKind int

const (
	// TopLevel answers hang directly off a question.
	TopLevel AnswerKind = iota + 1
	// Reply rows point at a top-level answer and address a user.
	Reply
)

func (k AnswerKind) String() string {
	switch k {
	case TopLevel:
		return "answer"
	case Reply:
		return "reply"
	default:
		return "invalid"
	}
}

var ErrAnswerParent = errors.New("answer must reference exactly one of question or answered")

// Answer is either a direct answer to a question (QuestionID set) or a reply
// to another answer (AnsweredID and RepliedID set). Never both, never neither.
type Answer struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	QuestionID  *uint     `gorm:"index;check:chk_answers_parent,(question_id IS NULL) <> (answered_id IS NULL)" json:"question_id"`
	AnsweredID  *uint     `gorm:"index" json:"answered_id"`
	RepliedID   *uint     `json:"replied_id"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	ReplyNum    int       `gorm:"not null;default:0" json:"reply_num"`
	CreatedTime time.Time `gorm:"autoCreateTime;index" json:"created_time"`
}

// NewTopLevelAnswer builds an answer to a question.
func NewTopLevelAnswer(userID, questionID uint, body string) Answer {
	return Answer{UserID: userID, QuestionID: &questionID, Body: body}
}

// NewReply builds a reply to answeredID addressed to repliedID.
func NewReply(userID, answeredID, repliedID uint, body string) Answer {
	return Answer{UserID: userID, AnsweredID: &answeredID, RepliedID: &repliedID, Body: body}
}

// Kind reports which role the row plays, or 0 when the parent invariant is broken.
func (a Answer) Kind() AnswerKind {
	switch {
	case a.QuestionID != nil && a.AnsweredID == nil:
		return TopLevel
	case a.QuestionID == nil && a.AnsweredID != nil:
		return Reply
	default:
		return 0
	}
}

// Validate enforces the parent invariant before the row reaches the database.
func (a Answer) Validate() error {
	switch a.Kind() {
	case TopLevel:
		if a.RepliedID != nil {
			return ErrAnswerParent
		}
		return nil
	case Reply:
		return nil
	default:
		return ErrAnswerParent
	}
}
