package discussion

import (
	"context"

	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Ledger stores thread replies and project comments. WithinDiscussionTx runs
// fn as one atomic unit and rolls back every write when fn fails.
type Ledger interface {
	WithinDiscussionTx(ctx context.Context, fn func(tx DiscussionTx) error) error

	Thread(ctx context.Context, id string) (models.Thread, error)
	Project(ctx context.Context, id string) (models.Project, error)
	// ListReplies and ListComments return rows oldest first.
	ListReplies(ctx context.Context, threadID string) ([]models.ThreadReply, error)
	ListComments(ctx context.Context, projectID string) ([]models.Comment, error)
}

// DiscussionTx is the ledger view inside one atomic unit. Lookups of missing
// rows yield apperr.ErrNotFound.
type DiscussionTx interface {
	// LockThread loads the thread and holds it against concurrent reply
	// writes until the unit ends.
	LockThread(ctx context.Context, id string) (models.Thread, error)
	Reply(ctx context.Context, id string) (models.ThreadReply, error)
	InsertReply(ctx context.Context, reply models.ThreadReply) error
	AddToReplyCount(ctx context.Context, threadID string, delta int) error
	ReplyCount(ctx context.Context, threadID string) (int, error)

	Project(ctx context.Context, id string) (models.Project, error)
	Comment(ctx context.Context, id string) (models.Comment, error)
	InsertComment(ctx context.Context, comment models.Comment) error
	// DeleteComment removes the comment and every reply beneath it and
	// reports how many rows went.
	DeleteComment(ctx context.Context, id string) (int, error)
}
