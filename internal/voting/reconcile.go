package voting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Result is the authoritative state after a toggle.
type Result struct {
	Voted    bool `json:"voted"`
	NewCount int  `json:"new_count"`
}

// reconcile flips the caller's vote on one target and adjusts the target's
// counter by exactly one in the same unit. The returned count is re-read
// from the target row, never derived from a tally the caller holds.
func reconcile(ctx context.Context, tx VoteTx, key models.VoteKey, now time.Time) (Result, error) {
	if _, err := tx.LockTarget(ctx, key.Kind, key.TargetID); err != nil {
		return Result{}, fmt.Errorf("lock %s %s: %w", key.Kind, key.TargetID, err)
	}

	exists, err := tx.HasVote(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("look up vote: %w", err)
	}

	var voted bool
	if exists {
		if err := unvote(ctx, tx, key); err != nil {
			return Result{}, err
		}
	} else {
		inserted, err := tx.InsertVote(ctx, models.Vote{
			ID:         uuid.NewString(),
			ActorID:    key.ActorID,
			TargetKind: key.Kind,
			TargetID:   key.TargetID,
			CreatedAt:  now,
		})
		if err != nil {
			return Result{}, fmt.Errorf("insert vote: %w", err)
		}
		switch {
		case inserted:
			if err := tx.AddToVoteCount(ctx, key.Kind, key.TargetID, 1); err != nil {
				return Result{}, fmt.Errorf("increment vote count: %w", err)
			}
			voted = true
		default:
			// A concurrent call by the same actor committed the vote
			// between the lookup and the insert; this call is the un-vote.
			if err := unvote(ctx, tx, key); err != nil {
				return Result{}, err
			}
		}
	}

	count, err := tx.VoteCount(ctx, key.Kind, key.TargetID)
	if err != nil {
		return Result{}, fmt.Errorf("read vote count: %w", err)
	}
	return Result{Voted: voted, NewCount: count}, nil
}

func unvote(ctx context.Context, tx VoteTx, key models.VoteKey) error {
	removed, err := tx.DeleteVote(ctx, key)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if !removed {
		return fmt.Errorf("delete vote: vote vanished mid-toggle: %w", apperr.ErrConflict)
	}
	if err := tx.AddToVoteCount(ctx, key.Kind, key.TargetID, -1); err != nil {
		return fmt.Errorf("decrement vote count: %w", err)
	}
	return nil
}
