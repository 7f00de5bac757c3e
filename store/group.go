package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mxforum/mxforum/models"
)

// GroupView is a group with its creator's identity.
type GroupView struct {
	models.Group
	CreatorUsername string `gorm:"column:creator_username"`
	CreatorNickname string `gorm:"column:creator_nickname"`
}

func (v GroupView) Creator() models.Identity {
	return models.NewIdentity(v.CreatorID, v.CreatorUsername, v.CreatorNickname)
}

// MemberView is a join request with the applicant's identity.
type MemberView struct {
	models.GroupMember
	ApplicantUsername string `gorm:"column:applicant_username"`
	ApplicantNickname string `gorm:"column:applicant_nickname"`
}

func (v MemberView) Applicant() models.Identity {
	return models.NewIdentity(v.UserID, v.ApplicantUsername, v.ApplicantNickname)
}

// PostView is a group post with its author's identity.
type PostView struct {
	models.GroupPost
	AuthorUsername string `gorm:"column:author_username"`
	AuthorNickname string `gorm:"column:author_nickname"`
}

func (v PostView) Author() models.Identity {
	return models.NewIdentity(v.UserID, v.AuthorUsername, v.AuthorNickname)
}

// GroupFilter mirrors QuestionFilter; hot orders by member_num.
type GroupFilter struct {
	Category string
	Order    string
	Limit    int
}

// Groups owns groups, their membership requests and posts.
type Groups struct {
	db *gorm.DB
}

func NewGroups(db *gorm.DB) *Groups {
	return &Groups{db: db}
}

func groups() Query[GroupView] {
	return From[GroupView](&models.Group{}).WithIdentity("creator", "creator_id")
}

func (g *Groups) ListGroups(ctx context.Context, f GroupFilter) ([]GroupView, error) {
	q := groups().WhereIf(f.Category != "", "category", Eq, f.Category)
	switch f.Order {
	case "", OrderNew:
		q = q.OrderBy("created_time", Desc)
	case OrderHot:
		q = q.OrderBy("member_num", Desc)
	default:
		return nil, Invalid("o", "unsupported order, use new or hot")
	}
	return q.Limit(f.Limit).Find(ctx, g.db)
}

func (g *Groups) GetGroup(ctx context.Context, id uint) (GroupView, error) {
	return groups().Where("id", Eq, id).First(ctx, g.db)
}

// CreateGroup inserts the group together with the creator's agreed
// membership, which is the one member_num starts at.
func (g *Groups) CreateGroup(ctx context.Context, grp models.Group) (models.Group, error) {
	grp.ID = 0
	grp.MemberNum = 1
	grp.PostNum = 0
	err := RunInTx(ctx, g.db, func(tx *gorm.DB) error {
		if err := tx.Create(&grp).Error; err != nil {
			return err
		}
		agreed := models.MemberAgreed
		now := time.Now()
		return tx.Create(&models.GroupMember{
			UserID:    grp.CreatorID,
			GroupID:   grp.ID,
			Status:    &agreed,
			Reply:     "creator",
			ReplyTime: &now,
		}).Error
	})
	if err != nil {
		return models.Group{}, err
	}
	return grp, nil
}

// Apply records a pending join request. A user has at most one request per group.
func (g *Groups) Apply(ctx context.Context, userID, groupID uint, reason string) (models.GroupMember, error) {
	if err := g.groupExists(g.db.WithContext(ctx), groupID); err != nil {
		return models.GroupMember{}, err
	}
	m := models.GroupMember{UserID: userID, GroupID: groupID, ApplyReason: reason}
	if err := g.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return models.GroupMember{}, Invalid("group", "you have already applied to this group")
		}
		return models.GroupMember{}, err
	}
	return m, nil
}

// ListApplications lists the requests of a group; only its creator may see them.
func (g *Groups) ListApplications(ctx context.Context, moderatorID, groupID uint) ([]MemberView, error) {
	var grp models.Group
	if err := g.db.WithContext(ctx).Select("id", "creator_id").Where("id = ?", groupID).First(&grp).Error; err != nil {
		return nil, notFound(err)
	}
	if grp.CreatorID != moderatorID {
		return nil, ErrForbidden
	}
	return From[MemberView](&models.GroupMember{}).
		WithIdentity("applicant", "user_id").
		Where("group_id", Eq, groupID).
		OrderBy("created_time", Desc).
		Find(ctx, g.db)
}

// Decide accepts or refuses a pending request. Only the group creator may
// decide, each request is decided once, and member_num grows only on agreed.
func (g *Groups) Decide(ctx context.Context, moderatorID, memberID uint, status, reply string) (models.GroupMember, error) {
	if !models.ValidMemberStatus(status) {
		return models.GroupMember{}, Invalid("status", "status must be agreed or refused")
	}
	var m models.GroupMember
	err := RunInTx(ctx, g.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", memberID).
			First(&m).Error; err != nil {
			return notFound(err)
		}
		var grp models.Group
		if err := tx.Select("id", "creator_id").Where("id = ?", m.GroupID).First(&grp).Error; err != nil {
			return notFound(err)
		}
		if grp.CreatorID != moderatorID {
			return ErrForbidden
		}
		if !m.Pending() {
			return Invalid("status", "the application has already been handled")
		}
		now := time.Now()
		res := tx.Model(&models.GroupMember{}).
			Where("id = ? AND status IS NULL", memberID).
			Updates(map[string]any{"status": status, "reply": reply, "reply_time": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return Invalid("status", "the application has already been handled")
		}
		m.Status, m.Reply, m.ReplyTime = &status, reply, &now
		if status == models.MemberAgreed {
			return GroupMembers.Incr(tx, grp.ID)
		}
		return nil
	})
	if err != nil {
		return models.GroupMember{}, err
	}
	return m, nil
}

// CreatePost publishes a post in a group the author is an agreed member of.
func (g *Groups) CreatePost(ctx context.Context, userID, groupID uint, title, body string) (models.GroupPost, error) {
	p := models.GroupPost{UserID: userID, GroupID: groupID, Title: title, Body: body}
	err := RunInTx(ctx, g.db, func(tx *gorm.DB) error {
		if err := g.groupExists(tx, groupID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.GroupMember{}).
			Where("user_id = ? AND group_id = ? AND status = ?", userID, groupID, models.MemberAgreed).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrForbidden
		}
		p.ID = 0
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return GroupPosts.Incr(tx, groupID)
	})
	if err != nil {
		return models.GroupPost{}, err
	}
	return p, nil
}

// ListPosts lists a group's posts, newest first.
func (g *Groups) ListPosts(ctx context.Context, groupID uint, limit int) ([]PostView, error) {
	if err := g.groupExists(g.db.WithContext(ctx), groupID); err != nil {
		return nil, err
	}
	return From[PostView](&models.GroupPost{}).
		WithIdentity("author", "user_id").
		Where("group_id", Eq, groupID).
		OrderBy("created_time", Desc).
		Limit(limit).
		Find(ctx, g.db)
}

func (g *Groups) groupExists(tx *gorm.DB, id uint) error {
	var n int64
	if err := tx.Model(&models.Group{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
