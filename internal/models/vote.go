package models

import "time"

// TargetKind names the entity a vote is cast on.
type TargetKind string

const (
	TargetProject TargetKind = "project"
	TargetThread  TargetKind = "thread"
)

// TargetKinds lists every votable kind.
var TargetKinds = []TargetKind{TargetProject, TargetThread}

// Valid reports whether k is a votable kind.
func (k TargetKind) Valid() bool {
	return k == TargetProject || k == TargetThread
}

// Table returns the table holding targets of this kind and their vote_count.
func (k TargetKind) Table() string {
	switch k {
	case TargetProject:
		return "projects"
	case TargetThread:
		return "threads"
	}
	return ""
}

// Vote is one actor's live vote on one target. A vote is binary: the row
// either exists or it does not.
type Vote struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    string     `gorm:"type:varchar(64);not null;uniqueIndex:idx_votes_actor_target,priority:1" json:"actor_id"`
	TargetKind TargetKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_votes_actor_target,priority:2;index:idx_votes_target,priority:1" json:"target_kind"`
	TargetID   string     `gorm:"type:uuid;not null;uniqueIndex:idx_votes_actor_target,priority:3;index:idx_votes_target,priority:2" json:"target_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

// VoteKey identifies the (actor, target) pair a Vote is unique on.
type VoteKey struct {
	ActorID  string
	Kind     TargetKind
	TargetID string
}

// Target is the kind-independent view of a votable row.
type Target struct {
	Kind      TargetKind `json:"kind"`
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	VoteCount int        `json:"vote_count"`
	CreatedAt time.Time  `json:"created_at"`
}

// CounterDrift reports a target whose stored vote_count disagrees with the
// number of live votes referencing it.
type CounterDrift struct {
	Kind      TargetKind `json:"kind"`
	TargetID  string     `json:"target_id"`
	Stored    int        `json:"stored"`
	LiveVotes int        `json:"live_votes"`
}
