package voting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

var tracer = otel.Tracer("github.com/emilythestrangee/vamp/backend/internal/voting")

// Service toggles votes on any votable kind. Projects and threads share one
// code path; the kind only selects which counter the ledger touches.
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

// Toggle casts actorID's vote on the target, or removes it if already cast.
// An empty actorID means the request is anonymous.
func (s *Service) Toggle(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (Result, error) {
	ctx, span := tracer.Start(ctx, "voting.Toggle")
	defer span.End()
	span.SetAttributes(
		attribute.String("vote.target_kind", string(kind)),
		attribute.String("vote.target_id", targetID),
	)

	res, err := s.toggle(ctx, actorID, kind, targetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.Kind(err))
		s.metrics.VotesToggled.WithLabelValues(string(kind), apperr.Kind(err)).Inc()
		return Result{}, err
	}

	outcome := "unvoted"
	if res.Voted {
		outcome = "voted"
	}
	s.metrics.VotesToggled.WithLabelValues(string(kind), outcome).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":     actorID,
		"target_kind": kind,
		"target_id":   targetID,
		"voted":       res.Voted,
		"vote_count":  res.NewCount,
	}).Debug("vote toggled")

	return res, nil
}

func (s *Service) toggle(ctx context.Context, actorID string, kind models.TargetKind, targetID string) (Result, error) {
	if actorID == "" {
		return Result{}, apperr.ErrUnauthenticated
	}
	if !kind.Valid() {
		return Result{}, fmt.Errorf("target kind %q: %w", kind, apperr.ErrInvalidInput)
	}
	if targetID == "" {
		return Result{}, fmt.Errorf("%s: %w", kind, apperr.ErrNotFound)
	}

	key := models.VoteKey{ActorID: actorID, Kind: kind, TargetID: targetID}
	var res Result
	err := s.ledger.WithinVoteTx(ctx, func(tx VoteTx) error {
		var err error
		res, err = reconcile(ctx, tx, key, s.now())
		return err
	})
	if err != nil {
		if !isKnown(err) {
			s.log.WithError(err).WithField("target_id", targetID).Error("vote toggle failed")
		}
		return Result{}, fmt.Errorf("toggle vote: %w", err)
	}
	return res, nil
}

func isKnown(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrConflict)
}
