package store

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mxforum/mxforum/utils"
)

// recount rebuilds one counter from its child rows. MySQL refuses a
// subquery on the table being updated, so the counts go through a derived table.
var recount = map[Counter]string{
	QuestionAnswers: "UPDATE `questions` AS p LEFT JOIN (" +
		"SELECT `question_id` AS pid, COUNT(*) AS n FROM `answers` " +
		"WHERE `question_id` IS NOT NULL AND `answered_id` IS NULL GROUP BY `question_id`" +
		") AS c ON c.pid = p.`id` SET p.`answer_num` = COALESCE(c.n, 0) " +
		"WHERE p.`answer_num` <> COALESCE(c.n, 0)",
	AnswerReplies: "UPDATE `answers` AS p LEFT JOIN (" +
		"SELECT `answered_id` AS pid, COUNT(*) AS n FROM `answers` " +
		"WHERE `answered_id` IS NOT NULL GROUP BY `answered_id`" +
		") AS c ON c.pid = p.`id` SET p.`reply_num` = COALESCE(c.n, 0) " +
		"WHERE p.`reply_num` <> COALESCE(c.n, 0)",
	GroupMembers: "UPDATE `groups` AS p LEFT JOIN (" +
		"SELECT `group_id` AS pid, COUNT(*) AS n FROM `group_members` " +
		"WHERE `status` = 'agreed' GROUP BY `group_id`" +
		") AS c ON c.pid = p.`id` SET p.`member_num` = COALESCE(c.n, 0) " +
		"WHERE p.`member_num` <> COALESCE(c.n, 0)",
	GroupPosts: "UPDATE `groups` AS p LEFT JOIN (" +
		"SELECT `group_id` AS pid, COUNT(*) AS n FROM `group_posts` GROUP BY `group_id`" +
		") AS c ON c.pid = p.`id` SET p.`post_num` = COALESCE(c.n, 0) " +
		"WHERE p.`post_num` <> COALESCE(c.n, 0)",
}

// Reconcile recomputes every denormalized counter from the child rows and
// returns how many parent rows had drifted, per counter.
func Reconcile(ctx context.Context, db *gorm.DB) (map[Counter]int64, error) {
	var (
		mu      sync.Mutex
		drifted = make(map[Counter]int64, len(recount))
	)
	eg, ctx := errgroup.WithContext(ctx)
	for c, stmt := range recount {
		c, stmt := c, stmt
		eg.Go(func() error {
			return RunInTx(ctx, db, func(tx *gorm.DB) error {
				res := tx.Exec(stmt)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected > 0 {
					utils.Sugar.Warnf("counter drift corrected counter=%s rows=%d", c, res.RowsAffected)
				}
				mu.Lock()
				drifted[c] = res.RowsAffected
				mu.Unlock()
				return nil
			})
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return drifted, nil
}

func (c Counter) String() string {
	return c.Table + "." + c.Column
}
