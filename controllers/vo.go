package controllers

import (
	"time"

	"github.com/ecodeclub/ekit/slice"

	"github.com/mxforum/mxforum/models"
	"github.com/mxforum/mxforum/store"
)

type QuestionVO struct {
	ID          uint            `json:"id"`
	User        models.Identity `json:"user"`
	Category    string          `json:"category"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Image       string          `json:"image"`
	AnswerNum   int             `json:"answer_num"`
	CreatedTime time.Time       `json:"created_time"`
}

type AnswerVO struct {
	ID          uint             `json:"id"`
	QuestionID  *uint            `json:"question_id,omitempty"`
	AnsweredID  *uint            `json:"answered_id,omitempty"`
	User        models.Identity  `json:"user"`
	Replied     *models.Identity `json:"replied,omitempty"`
	Body        string           `json:"body"`
	ReplyNum    int              `json:"reply_num"`
	CreatedTime time.Time        `json:"created_time"`
}

type GroupVO struct {
	ID          uint            `json:"id"`
	Creator     models.Identity `json:"creator"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	FrontImage  string          `json:"front_image"`
	Desc        string          `json:"desc"`
	Notice      string          `json:"notice"`
	MemberNum   int             `json:"member_num"`
	PostNum     int             `json:"post_num"`
	CreatedTime time.Time       `json:"created_time"`
}

type MemberVO struct {
	ID          uint            `json:"id"`
	GroupID     uint            `json:"group_id"`
	User        models.Identity `json:"user"`
	Status      string          `json:"status"`
	ApplyReason string          `json:"apply_reason"`
	Reply       string          `json:"reply"`
	ReplyTime   *time.Time      `json:"reply_time"`
	CreatedTime time.Time       `json:"created_time"`
}

type PostVO struct {
	ID          uint            `json:"id"`
	User        models.Identity `json:"user"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	CreatedTime time.Time       `json:"created_time"`
}

// mediaURL renders stored upload names as public addresses.
type mediaURL func(name string) string

func (m mediaURL) questions(src []store.QuestionView) []QuestionVO {
	return slice.Map(src, func(_ int, q store.QuestionView) QuestionVO {
		return m.question(q)
	})
}

func (m mediaURL) question(q store.QuestionView) QuestionVO {
	return QuestionVO{
		ID:          q.ID,
		User:        q.Author(),
		Category:    q.Category,
		Title:       q.Title,
		Body:        q.Body,
		Image:       m(q.Image),
		AnswerNum:   q.AnswerNum,
		CreatedTime: q.CreatedTime,
	}
}

func answers(src []store.AnswerView) []AnswerVO {
	return slice.Map(src, func(_ int, a store.AnswerView) AnswerVO {
		return AnswerVO{
			ID:          a.ID,
			QuestionID:  a.QuestionID,
			AnsweredID:  a.AnsweredID,
			User:        a.Author(),
			Replied:     a.Replied(),
			Body:        a.Body,
			ReplyNum:    a.ReplyNum,
			CreatedTime: a.CreatedTime,
		}
	})
}

func (m mediaURL) groups(src []store.GroupView) []GroupVO {
	return slice.Map(src, func(_ int, g store.GroupView) GroupVO {
		return m.group(g)
	})
}

func (m mediaURL) group(g store.GroupView) GroupVO {
	return GroupVO{
		ID:          g.ID,
		Creator:     g.Creator(),
		Name:        g.Name,
		Category:    g.Category,
		FrontImage:  m(g.FrontImage),
		Desc:        g.Desc,
		Notice:      g.Notice,
		MemberNum:   g.MemberNum,
		PostNum:     g.PostNum,
		CreatedTime: g.CreatedTime,
	}
}

func memberStatus(s *string) string {
	if s == nil {
		return "pending"
	}
	return *s
}

func members(src []store.MemberView) []MemberVO {
	return slice.Map(src, func(_ int, m store.MemberView) MemberVO {
		return MemberVO{
			ID:          m.ID,
			GroupID:     m.GroupID,
			User:        m.Applicant(),
			Status:      memberStatus(m.Status),
			ApplyReason: m.ApplyReason,
			Reply:       m.Reply,
			ReplyTime:   m.ReplyTime,
			CreatedTime: m.CreatedTime,
		}
	})
}

func posts(src []store.PostView) []PostVO {
	return slice.Map(src, func(_ int, p store.PostView) PostVO {
		return PostVO{
			ID:          p.ID,
			User:        p.Author(),
			Title:       p.Title,
			Body:        p.Body,
			CreatedTime: p.CreatedTime,
		}
	})
}
