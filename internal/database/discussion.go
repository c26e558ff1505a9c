package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

var _ discussion.Ledger = (*Store)(nil)

func (s *Store) WithinDiscussionTx(ctx context.Context, fn func(discussion.DiscussionTx) error) error {
	return s.transact(ctx, func(t *txStore) error { return fn(t) })
}

func (s *Store) ListReplies(ctx context.Context, threadID string) ([]models.ThreadReply, error) {
	var replies []models.ThreadReply
	err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("created_at, id").Find(&replies).Error
	if err != nil {
		return nil, classify("list replies", err)
	}
	return replies, nil
}

func (s *Store) ListComments(ctx context.Context, projectID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at, id").Find(&comments).Error
	if err != nil {
		return nil, classify("list comments", err)
	}
	return comments, nil
}

// LiveReplies counts reply rows for one thread straight from the table.
func (s *Store) LiveReplies(ctx context.Context, threadID string) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ThreadReply{}).Where("thread_id = ?", threadID).Count(&n).Error; err != nil {
		return 0, classify("count replies", err)
	}
	return int(n), nil
}

func (t *txStore) LockThread(ctx context.Context, id string) (models.Thread, error) {
	var th models.Thread
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&th, "id = ?", id).Error
	if err != nil {
		return models.Thread{}, classify("lock thread", err)
	}
	return th, nil
}

func (t *txStore) Reply(ctx context.Context, id string) (models.ThreadReply, error) {
	var r models.ThreadReply
	if err := t.db.WithContext(ctx).Take(&r, "id = ?", id).Error; err != nil {
		return models.ThreadReply{}, classify("load reply", err)
	}
	return r, nil
}

func (t *txStore) InsertReply(ctx context.Context, r models.ThreadReply) error {
	if err := t.db.WithContext(ctx).Create(&r).Error; err != nil {
		return classify("insert reply", err)
	}
	return nil
}

func (t *txStore) AddToReplyCount(ctx context.Context, threadID string, delta int) error {
	res := t.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("id = ?", threadID).
		UpdateColumn("reply_count", gorm.Expr("reply_count + ?", delta))
	if res.Error != nil {
		return classify("update reply count", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update reply count: %w", apperr.ErrNotFound)
	}
	return nil
}

func (t *txStore) ReplyCount(ctx context.Context, threadID string) (int, error) {
	var counts []int
	err := t.db.WithContext(ctx).Model(&models.Thread{}).Where("id = ?", threadID).Pluck("reply_count", &counts).Error
	if err != nil {
		return 0, classify("read reply count", err)
	}
	if len(counts) == 0 {
		return 0, fmt.Errorf("read reply count: %w", apperr.ErrNotFound)
	}
	return counts[0], nil
}

func (t *txStore) Comment(ctx context.Context, id string) (models.Comment, error) {
	var c models.Comment
	if err := t.db.WithContext(ctx).Take(&c, "id = ?", id).Error; err != nil {
		return models.Comment{}, classify("load comment", err)
	}
	return c, nil
}

func (t *txStore) InsertComment(ctx context.Context, c models.Comment) error {
	if err := t.db.WithContext(ctx).Create(&c).Error; err != nil {
		return classify("insert comment", err)
	}
	return nil
}

const deleteCommentTree = `
	WITH RECURSIVE doomed AS (
		SELECT id FROM comments WHERE id = ?
		UNION ALL
		SELECT c.id FROM comments c JOIN doomed d ON c.parent_id = d.id
	)
	DELETE FROM comments WHERE id IN (SELECT id FROM doomed)`

func (t *txStore) DeleteComment(ctx context.Context, id string) (int, error) {
	res := t.db.WithContext(ctx).Exec(deleteCommentTree, id)
	if res.Error != nil {
		return 0, classify("delete comment", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ReplyDrift lists threads whose reply_count differs from their reply rows.
func (s *Store) ReplyDrift(ctx context.Context) ([]models.ReplyDrift, error) {
	var drift []models.ReplyDrift
	err := s.db.WithContext(ctx).Raw(`
		SELECT t.id AS thread_id, t.reply_count AS stored, COUNT(r.id) AS live_replies
		FROM threads t
		LEFT JOIN thread_replies r ON r.thread_id = t.id
		GROUP BY t.id, t.reply_count
		HAVING t.reply_count <> COUNT(r.id)`).Scan(&drift).Error
	if err != nil {
		return nil, classify("reply drift", err)
	}
	return drift, nil
}
