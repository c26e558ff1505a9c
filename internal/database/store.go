package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/views"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

// Store is the Postgres-backed ledger. Every mutating unit runs in one
// gorm transaction; targets and applications are locked with SELECT ... FOR
// UPDATE so concurrent toggles on one target serialize on its row.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ voting.Ledger       = (*Store)(nil)
	_ applications.Ledger = (*Store)(nil)
	_ catalog.Store       = (*Store)(nil)
	_ views.Source        = (*Store)(nil)
)

func (s *Store) transact(ctx context.Context, fn func(t *txStore) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{db: tx})
	})
	if err == nil || apperr.Kind(err) != "internal" {
		return err
	}
	return classify("transaction", err)
}

func (s *Store) WithinVoteTx(ctx context.Context, fn func(voting.VoteTx) error) error {
	return s.transact(ctx, func(t *txStore) error { return fn(t) })
}

func (s *Store) WithinApplicationTx(ctx context.Context, fn func(applications.ApplicationTx) error) error {
	return s.transact(ctx, func(t *txStore) error { return fn(t) })
}

func (s *Store) reader(ctx context.Context) *txStore {
	return &txStore{db: s.db.WithContext(ctx)}
}

type txStore struct {
	db *gorm.DB
}

type targetRow struct {
	ID        string
	UserID    string
	VoteCount int
	CreatedAt time.Time
}

func (t *txStore) LockTarget(ctx context.Context, kind models.TargetKind, id string) (models.Target, error) {
	if !kind.Valid() {
		return models.Target{}, fmt.Errorf("target kind %q: %w", kind, apperr.ErrInvalidInput)
	}
	var row targetRow
	err := t.db.WithContext(ctx).
		Table(kind.Table()).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "user_id", "vote_count", "created_at").
		Where("id = ?", id).
		Take(&row).Error
	if err != nil {
		return models.Target{}, classify("lock target", err)
	}
	return models.Target{Kind: kind, ID: row.ID, OwnerID: row.UserID, VoteCount: row.VoteCount, CreatedAt: row.CreatedAt}, nil
}

func (t *txStore) voteScope(ctx context.Context, key models.VoteKey) *gorm.DB {
	return t.db.WithContext(ctx).
		Where("actor_id = ? AND target_kind = ? AND target_id = ?", key.ActorID, key.Kind, key.TargetID)
}

func (t *txStore) HasVote(ctx context.Context, key models.VoteKey) (bool, error) {
	var n int64
	if err := t.voteScope(ctx, key).Model(&models.Vote{}).Count(&n).Error; err != nil {
		return false, classify("count votes", err)
	}
	return n > 0, nil
}

func (t *txStore) InsertVote(ctx context.Context, v models.Vote) (bool, error) {
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&v)
	if res.Error != nil {
		return false, classify("insert vote", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *txStore) DeleteVote(ctx context.Context, key models.VoteKey) (bool, error) {
	res := t.voteScope(ctx, key).Delete(&models.Vote{})
	if res.Error != nil {
		return false, classify("delete vote", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (t *txStore) AddToVoteCount(ctx context.Context, kind models.TargetKind, id string, delta int) error {
	res := t.db.WithContext(ctx).
		Table(kind.Table()).
		Where("id = ?", id).
		UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta))
	if res.Error != nil {
		return classify("update vote count", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update vote count: %w", apperr.ErrNotFound)
	}
	return nil
}

func (t *txStore) VoteCount(ctx context.Context, kind models.TargetKind, id string) (int, error) {
	var counts []int
	err := t.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Pluck("vote_count", &counts).Error
	if err != nil {
		return 0, classify("read vote count", err)
	}
	if len(counts) == 0 {
		return 0, fmt.Errorf("read vote count: %w", apperr.ErrNotFound)
	}
	return counts[0], nil
}

func (t *txStore) User(ctx context.Context, id string) (models.User, error) {
	var u models.User
	if err := t.db.WithContext(ctx).Take(&u, "id = ?", id).Error; err != nil {
		return models.User{}, classify("load user", err)
	}
	return u, nil
}

func (t *txStore) Project(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	if err := t.db.WithContext(ctx).Take(&p, "id = ?", id).Error; err != nil {
		return models.Project{}, classify("load project", err)
	}
	return p, nil
}

func (t *txStore) Grant(ctx context.Context, id string) (models.Grant, error) {
	var g models.Grant
	if err := t.db.WithContext(ctx).Take(&g, "id = ?", id).Error; err != nil {
		return models.Grant{}, classify("load grant", err)
	}
	return g, nil
}

func (t *txStore) InsertGrant(ctx context.Context, g models.Grant) error {
	if err := t.db.WithContext(ctx).Create(&g).Error; err != nil {
		return classify("insert grant", err)
	}
	return nil
}

func (t *txStore) UpdateGrantStatus(ctx context.Context, id string, status models.GrantStatus, now time.Time) error {
	res := t.db.WithContext(ctx).Model(&models.Grant{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now})
	if res.Error != nil {
		return classify("update grant status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update grant status: %w", apperr.ErrNotFound)
	}
	return nil
}

func (t *txStore) HasApplication(ctx context.Context, projectID, grantID string) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).Model(&models.GrantApplication{}).
		Where("project_id = ? AND grant_id = ?", projectID, grantID).
		Count(&n).Error
	if err != nil {
		return false, classify("count applications", err)
	}
	return n > 0, nil
}

func (t *txStore) InsertApplication(ctx context.Context, a models.GrantApplication) (bool, error) {
	res := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "grant_id"}},
			DoNothing: true,
		}).
		Create(&a)
	if res.Error != nil {
		return false, classify("insert application", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (t *txStore) LockApplication(ctx context.Context, id string) (models.GrantApplication, error) {
	var a models.GrantApplication
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&a, "id = ?", id).Error
	if err != nil {
		return models.GrantApplication{}, classify("lock application", err)
	}
	return a, nil
}

func (t *txStore) UpdateApplicationStatus(ctx context.Context, id string, status models.ApplicationStatus, now time.Time) error {
	res := t.db.WithContext(ctx).Model(&models.GrantApplication{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now})
	if res.Error != nil {
		return classify("update application status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update application status: %w", apperr.ErrNotFound)
	}
	return nil
}
