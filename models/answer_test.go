package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerKind(t *testing.T) {
	q, a, u := uint(1), uint(2), uint(3)
	testCases := []struct {
		name    string
		answer  Answer
		kind    AnswerKind
		wantErr error
	}{
		{name: "top level", answer: NewTopLevelAnswer(9, q, "b"), kind: TopLevel},
		{name: "reply", answer: NewReply(9, a, u, "b"), kind: Reply},
		{name: "both parents", answer: Answer{QuestionID: &q, AnsweredID: &a}, wantErr: ErrAnswerParent},
		{name: "no parent", answer: Answer{}, wantErr: ErrAnswerParent},
		{name: "top level addressed to a user", answer: Answer{QuestionID: &q, RepliedID: &u}, kind: TopLevel, wantErr: ErrAnswerParent},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.answer.Kind())
			assert.Equal(t, tc.wantErr, tc.answer.Validate())
		})
	}
	assert.Equal(t, "reply", Reply.String())
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, Identity{ID: 1, DisplayName: "Ann"}, NewIdentity(1, "ann", "Ann"))
	assert.Equal(t, Identity{ID: 1, DisplayName: "ann"}, User{ID: 1, Username: "ann"}.Identity())
	assert.True(t, GroupMember{}.Pending())
	assert.True(t, ValidMemberStatus(MemberRefused))
	assert.False(t, ValidMemberStatus("pending"))
}
