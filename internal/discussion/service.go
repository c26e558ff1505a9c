// Package discussion keeps forum replies and project comments. A reply and
// its thread's reply_count move together in one unit, the same way a vote
// and its target's vote_count do.
package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

const (
	MinReplyLength   = 2
	MaxCommentLength = 1000
)

var tracer = otel.Tracer("github.com/emilythestrangee/vamp/backend/internal/discussion")

type Service struct {
	ledger  Ledger
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(ledger Ledger, log logrus.FieldLogger, m *metrics.Metrics) *Service {
	return &Service{
		ledger:  ledger,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ReplyResult carries the stored reply and the thread's reply_count as read
// back inside the same unit.
type ReplyResult struct {
	Reply      models.ThreadReply `json:"reply"`
	ReplyCount int                `json:"reply_count"`
}

// AddReply posts a reply to a thread, optionally beneath another reply of
// the same thread.
func (s *Service) AddReply(ctx context.Context, actorID, threadID, content string, parentID *string) (ReplyResult, error) {
	ctx, span := tracer.Start(ctx, "discussion.AddReply")
	defer span.End()
	span.SetAttributes(attribute.String("thread.id", threadID))

	res, err := s.addReply(ctx, actorID, threadID, content, parentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		s.metrics.DiscussionPosts.WithLabelValues("reply", apperr.Kind(err)).Inc()
		return ReplyResult{}, err
	}

	s.metrics.DiscussionPosts.WithLabelValues("reply", "created").Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":     actorID,
		"thread_id":   threadID,
		"reply_id":    res.Reply.ID,
		"reply_count": res.ReplyCount,
	}).Debug("thread reply added")
	return res, nil
}

func (s *Service) addReply(ctx context.Context, actorID, threadID, content string, parentID *string) (ReplyResult, error) {
	if actorID == "" {
		return ReplyResult{}, apperr.ErrUnauthenticated
	}
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) < MinReplyLength {
		return ReplyResult{}, fmt.Errorf("reply must be at least %d characters: %w", MinReplyLength, apperr.ErrInvalidInput)
	}
	parentID = normalizeParent(parentID)

	reply := models.ThreadReply{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		ParentID:  parentID,
		UserID:    actorID,
		Content:   content,
		CreatedAt: s.now(),
	}
	var count int
	err := s.ledger.WithinDiscussionTx(ctx, func(tx DiscussionTx) error {
		if _, err := tx.LockThread(ctx, threadID); err != nil {
			return fmt.Errorf("thread %s: %w", threadID, err)
		}
		if parentID != nil {
			parent, err := tx.Reply(ctx, *parentID)
			if err != nil {
				return fmt.Errorf("parent reply %s: %w", *parentID, err)
			}
			if parent.ThreadID != threadID {
				return fmt.Errorf("parent reply %s is in another thread: %w", *parentID, apperr.ErrInvalidInput)
			}
		}
		if err := tx.InsertReply(ctx, reply); err != nil {
			return err
		}
		if err := tx.AddToReplyCount(ctx, threadID, 1); err != nil {
			return err
		}
		var err error
		count, err = tx.ReplyCount(ctx, threadID)
		return err
	})
	if err != nil {
		if !isKnown(err) {
			s.log.WithError(err).WithField("thread_id", threadID).Error("add reply failed")
		}
		return ReplyResult{}, fmt.Errorf("add reply: %w", err)
	}
	return ReplyResult{Reply: reply, ReplyCount: count}, nil
}

func (s *Service) Replies(ctx context.Context, threadID string) ([]models.ThreadReply, error) {
	if _, err := s.ledger.Thread(ctx, threadID); err != nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, err)
	}
	replies, err := s.ledger.ListReplies(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}

// AddComment leaves a comment on a project. A parent comment must belong to
// the same project.
func (s *Service) AddComment(ctx context.Context, actorID, projectID, text string, parentID *string) (models.Comment, error) {
	ctx, span := tracer.Start(ctx, "discussion.AddComment")
	defer span.End()
	span.SetAttributes(attribute.String("project.id", projectID))

	c, err := s.addComment(ctx, actorID, projectID, text, parentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		s.metrics.DiscussionPosts.WithLabelValues("comment", apperr.Kind(err)).Inc()
		return models.Comment{}, err
	}
	s.metrics.DiscussionPosts.WithLabelValues("comment", "created").Inc()
	s.log.WithFields(logrus.Fields{"user_id": actorID, "project_id": projectID, "comment_id": c.ID}).Debug("comment added")
	return c, nil
}

func (s *Service) addComment(ctx context.Context, actorID, projectID, text string, parentID *string) (models.Comment, error) {
	if actorID == "" {
		return models.Comment{}, apperr.ErrUnauthenticated
	}
	if strings.TrimSpace(text) == "" {
		return models.Comment{}, fmt.Errorf("comment cannot be empty: %w", apperr.ErrInvalidInput)
	}
	// The limit applies to the text as sent, before trimming.
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return models.Comment{}, fmt.Errorf("comment longer than %d characters: %w", MaxCommentLength, apperr.ErrInvalidInput)
	}
	parentID = normalizeParent(parentID)

	now := s.now()
	c := models.Comment{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ParentID:  parentID,
		UserID:    actorID,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.ledger.WithinDiscussionTx(ctx, func(tx DiscussionTx) error {
		if _, err := tx.Project(ctx, projectID); err != nil {
			return fmt.Errorf("project %s: %w", projectID, err)
		}
		if parentID != nil {
			parent, err := tx.Comment(ctx, *parentID)
			if err != nil {
				return fmt.Errorf("parent comment %s: %w", *parentID, err)
			}
			if parent.ProjectID != projectID {
				return fmt.Errorf("parent comment %s is on another project: %w", *parentID, apperr.ErrInvalidInput)
			}
		}
		return tx.InsertComment(ctx, c)
	})
	if err != nil {
		if !isKnown(err) {
			s.log.WithError(err).WithField("project_id", projectID).Error("add comment failed")
		}
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}
	return c, nil
}

func (s *Service) Comments(ctx context.Context, projectID string) ([]models.Comment, error) {
	if _, err := s.ledger.Project(ctx, projectID); err != nil {
		return nil, fmt.Errorf("project %s: %w", projectID, err)
	}
	comments, err := s.ledger.ListComments(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment removes the actor's own comment together with its replies
// and reports how many comments were removed.
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID string) (int, error) {
	if actorID == "" {
		return 0, apperr.ErrUnauthenticated
	}
	var removed int
	err := s.ledger.WithinDiscussionTx(ctx, func(tx DiscussionTx) error {
		c, err := tx.Comment(ctx, commentID)
		if err != nil {
			return fmt.Errorf("comment %s: %w", commentID, err)
		}
		if c.UserID != actorID {
			return fmt.Errorf("comment %s: %w", commentID, apperr.ErrForbidden)
		}
		removed, err = tx.DeleteComment(ctx, commentID)
		if err != nil {
			return err
		}
		if removed == 0 {
			return fmt.Errorf("comment %s already deleted: %w", commentID, apperr.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete comment: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": actorID, "comment_id": commentID, "removed": removed}).Info("comment deleted")
	return removed, nil
}

func normalizeParent(id *string) *string {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil
	}
	v := strings.TrimSpace(*id)
	return &v
}

func isKnown(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrConflict) ||
		errors.Is(err, apperr.ErrInvalidInput)
}
