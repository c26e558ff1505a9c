package voting

import (
	"context"

	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Ledger runs vote reconciliation units. WithinVoteTx must execute fn in a
// single atomic unit: when fn returns an error every write made through tx
// is rolled back.
type Ledger interface {
	WithinVoteTx(ctx context.Context, fn func(tx VoteTx) error) error
}

// VoteTx is the view of the vote ledger and the target counters available
// inside one atomic unit.
type VoteTx interface {
	// LockTarget loads the target and holds it against concurrent
	// reconciliation until the unit ends. Missing targets yield
	// apperr.ErrNotFound.
	LockTarget(ctx context.Context, kind models.TargetKind, id string) (models.Target, error)

	HasVote(ctx context.Context, key models.VoteKey) (bool, error)
	// InsertVote reports false, without error, when the pair already has
	// a live vote.
	InsertVote(ctx context.Context, vote models.Vote) (bool, error)
	// DeleteVote reports false when there was no live vote to delete.
	DeleteVote(ctx context.Context, key models.VoteKey) (bool, error)

	AddToVoteCount(ctx context.Context, kind models.TargetKind, id string, delta int) error
	VoteCount(ctx context.Context, kind models.TargetKind, id string) (int, error)
}
