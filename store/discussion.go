package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mxforum/mxforum/models"
)

const (
	OrderNew = "new"
	OrderHot = "hot"
)

// QuestionView is a question row with its author's identity joined in.
type QuestionView struct {
	models.Question
	AuthorUsername string `gorm:"column:author_username"`
	AuthorNickname string `gorm:"column:author_nickname"`
}

// Author returns the joined author identity.
func (v QuestionView) Author() models.Identity {
	return models.NewIdentity(v.UserID, v.AuthorUsername, v.AuthorNickname)
}

// AnswerView is an answer or reply row with author (and, for replies, the
// addressed user) joined in.
type AnswerView struct {
	models.Answer
	AuthorUsername  string `gorm:"column:author_username"`
	AuthorNickname  string `gorm:"column:author_nickname"`
	RepliedUsername string `gorm:"column:replied_username"`
	RepliedNickname string `gorm:"column:replied_nickname"`
}

// Author returns the joined author identity.
func (v AnswerView) Author() models.Identity {
	return models.NewIdentity(v.UserID, v.AuthorUsername, v.AuthorNickname)
}

// Replied returns the addressed user of a reply, nil for top-level answers.
func (v AnswerView) Replied() *models.Identity {
	if v.RepliedID == nil {
		return nil
	}
	id := models.NewIdentity(*v.RepliedID, v.RepliedUsername, v.RepliedNickname)
	return &id
}

// QuestionFilter selects and orders a question listing. An empty Category
// means no restriction, an empty Order means OrderNew and Limit <= 0 means all.
type QuestionFilter struct {
	Category string
	Order    string
	Limit    int
}

// Discussion owns questions, answers and replies.
type Discussion struct {
	db    *gorm.DB
	users *Users
}

// NewDiscussion creates a Discussion store on the shared connection pool.
func NewDiscussion(db *gorm.DB) *Discussion {
	return &Discussion{db: db, users: NewUsers(db)}
}

func questions() Query[QuestionView] {
	return From[QuestionView](&models.Question{}).WithIdentity("author", "user_id")
}

func answers() Query[AnswerView] {
	return From[AnswerView](&models.Answer{}).WithIdentity("author", "user_id")
}

// ListQuestions lists questions, newest first or by answer count.
func (d *Discussion) ListQuestions(ctx context.Context, f QuestionFilter) ([]QuestionView, error) {
	q := questions().WhereIf(f.Category != "", "category", Eq, f.Category)
	switch f.Order {
	case "", OrderNew:
		q = q.OrderBy("created_time", Desc)
	case OrderHot:
		q = q.OrderBy("answer_num", Desc)
	default:
		return nil, Invalid("o", "unsupported order, use new or hot")
	}
	return q.Limit(f.Limit).Find(ctx, d.db)
}

// GetQuestion returns one question with its author.
func (d *Discussion) GetQuestion(ctx context.Context, id uint) (QuestionView, error) {
	return questions().Where("id", Eq, id).First(ctx, d.db)
}

// CreateQuestion stores a new question; AnswerNum always starts at zero.
func (d *Discussion) CreateQuestion(ctx context.Context, q models.Question) (models.Question, error) {
	q.ID = 0
	q.AnswerNum = 0
	if err := d.db.WithContext(ctx).Create(&q).Error; err != nil {
		return models.Question{}, err
	}
	return q, nil
}

// ListAnswers lists the top-level answers of a question, newest first.
func (d *Discussion) ListAnswers(ctx context.Context, questionID uint) ([]AnswerView, error) {
	if err := d.exists(ctx, &models.Question{}, questionID); err != nil {
		return nil, err
	}
	return answers().
		Where("question_id", Eq, questionID).
		WhereNull("answered_id").
		OrderBy("created_time", Desc).
		Find(ctx, d.db)
}

// CreateAnswer inserts a top-level answer and bumps the question's answer_num
// in the same transaction.
func (d *Discussion) CreateAnswer(ctx context.Context, authorID, questionID uint, body string) (models.Answer, error) {
	a := models.NewTopLevelAnswer(authorID, questionID, body)
	err := RunInTx(ctx, d.db, func(tx *gorm.DB) error {
		// The UPDATE takes the row lock first, so concurrent answers on the
		// same question queue here instead of racing on a stale count.
		if err := QuestionAnswers.Incr(tx, questionID); err != nil {
			return err
		}
		a.ID = 0
		return insertAnswer(tx, &a)
	})
	if err != nil {
		return models.Answer{}, err
	}
	return a, nil
}

// ListReplies lists the replies under a top-level answer, oldest first.
func (d *Discussion) ListReplies(ctx context.Context, answerID uint) ([]AnswerView, error) {
	if err := d.exists(ctx, &models.Answer{}, answerID); err != nil {
		return nil, err
	}
	return answers().
		WithIdentity("replied", "replied_id").
		Where("answered_id", Eq, answerID).
		OrderBy("created_time", Asc).
		Find(ctx, d.db)
}

// CreateReply inserts a reply to a top-level answer addressed to repliedID
// and bumps the answer's reply_num in the same transaction. Replies are one
// level deep: answering a reply is rejected.
func (d *Discussion) CreateReply(ctx context.Context, authorID, answeredID, repliedID uint, body string) (models.Answer, error) {
	r := models.NewReply(authorID, answeredID, repliedID, body)
	err := RunInTx(ctx, d.db, func(tx *gorm.DB) error {
		var target models.Answer
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", answeredID).
			First(&target).Error; err != nil {
			return notFound(err)
		}
		if target.Kind() != models.TopLevel {
			return Invalid("answered", "replies can only be made to a top-level answer")
		}
		ok, err := d.users.existsTx(tx, repliedID)
		if err != nil {
			return err
		}
		if !ok {
			return Invalid("replied", "the replied user does not exist")
		}
		r.ID = 0
		if err := insertAnswer(tx, &r); err != nil {
			return err
		}
		return AnswerReplies.Incr(tx, answeredID)
	})
	if err != nil {
		return models.Answer{}, err
	}
	return r, nil
}

func insertAnswer(tx *gorm.DB, a *models.Answer) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return tx.Create(a).Error
}

func (d *Discussion) exists(ctx context.Context, model any, id uint) error {
	var n int64
	if err := d.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means a missing referenced record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
