package store

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mxforum/mxforum/models"
)

// Stats is a snapshot of forum-wide totals.
type Stats struct {
	Users     int64 `json:"user_count"`
	Questions int64 `json:"question_count"`
	Answers   int64 `json:"answer_count"`
	Groups    int64 `json:"group_count"`
	Posts     int64 `json:"post_count"`
}

// CountStats counts every table concurrently. Answers include replies.
func CountStats(ctx context.Context, db *gorm.DB) (Stats, error) {
	var s Stats
	eg, ctx := errgroup.WithContext(ctx)
	for _, t := range []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &s.Users},
		{&models.Question{}, &s.Questions},
		{&models.Answer{}, &s.Answers},
		{&models.Group{}, &s.Groups},
		{&models.GroupPost{}, &s.Posts},
	} {
		t := t
		eg.Go(func() error {
			return db.WithContext(ctx).Model(t.model).Count(t.dst).Error
		})
	}
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}
