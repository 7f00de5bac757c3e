package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mxforum/mxforum/utils"
)

// Counter names a denormalized aggregate column and the table that owns it.
type Counter struct {
	Table  string
	Column string
}

var (
	QuestionAnswers = Counter{Table: "questions", Column: "answer_num"}
	AnswerReplies   = Counter{Table: "answers", Column: "reply_num"}
	GroupMembers    = Counter{Table: "groups", Column: "member_num"}
	GroupPosts      = Counter{Table: "groups", Column: "post_num"}
)

const txAttempts = 3

// Incr bumps the counter on row id with a single UPDATE so the database
// serializes concurrent writers on the row lock. It must run inside the
// transaction that inserts the child row. Returns ErrNotFound when no row matched.
func (c Counter) Incr(tx *gorm.DB, id uint) error {
	res := tx.Table(c.Table).
		Where("id = ?", id).
		UpdateColumn(c.Column, gorm.Expr(fmt.Sprintf("`%s` + ?", c.Column), 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RunInTx runs fn in a transaction and re-runs it when MySQL reports a
// deadlock or lock wait timeout. Any other error rolls back and is returned.
func RunInTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !retryable(err) {
			return err
		}
		utils.Sugar.Warnf("transaction conflict, retrying attempt=%d err=%v", attempt, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}
	return err
}
