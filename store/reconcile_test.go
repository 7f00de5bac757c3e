package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	db, mock := newMockDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection serializes the four transactions; their order is random
	sqlDB.SetMaxOpenConns(1)
	mock.MatchExpectationsInOrder(false)

	for _, tc := range []struct {
		stmt string
		rows int64
	}{
		{"UPDATE `questions` AS p .* SET p.`answer_num`", 2},
		{"UPDATE `answers` AS p .* SET p.`reply_num`", 0},
		{"UPDATE `groups` AS p .* SET p.`member_num`", 1},
		{"UPDATE `groups` AS p .* SET p.`post_num`", 0},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(tc.stmt).WillReturnResult(sqlmock.NewResult(0, tc.rows))
		mock.ExpectCommit()
	}

	drifted, err := Reconcile(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, map[Counter]int64{
		QuestionAnswers: 2,
		AnswerReplies:   0,
		GroupMembers:    1,
		GroupPosts:      0,
	}, drifted)
}

func TestRecountCoversEveryCounter(t *testing.T) {
	for _, c := range []Counter{QuestionAnswers, AnswerReplies, GroupMembers, GroupPosts} {
		stmt, ok := recount[c]
		require.True(t, ok, c.String())
		assert.Contains(t, stmt, "`"+c.Table+"` AS p")
		assert.Contains(t, stmt, "p.`"+c.Column+"` = COALESCE(c.n, 0)")
	}
	assert.Equal(t, "groups.member_num", GroupMembers.String())
}
