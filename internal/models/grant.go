package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GrantStatus is the sponsor-controlled availability of a grant.
type GrantStatus string

const (
	GrantOpen   GrantStatus = "OPEN"
	GrantClosed GrantStatus = "CLOSED"
	GrantPaused GrantStatus = "PAUSED"
)

func (s GrantStatus) Valid() bool {
	switch s {
	case GrantOpen, GrantClosed, GrantPaused:
		return true
	}
	return false
}

// Grant is a sponsor-funded award projects can apply to.
type Grant struct {
	ID            string          `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string          `gorm:"not null" json:"title"`
	Description   string          `json:"description"`
	Requirements  string          `json:"requirements,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	MaxRecipients int             `gorm:"not null;default:1" json:"max_recipients"`
	Status        GrantStatus     `gorm:"type:varchar(16);not null;default:OPEN;index" json:"status"`
	SponsorID     string          `gorm:"type:varchar(64);not null;index" json:"sponsor_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Expired reports whether the grant's deadline lies before now.
func (g Grant) Expired(now time.Time) bool {
	return g.Deadline != nil && g.Deadline.Before(now)
}

// AcceptsApplications reports whether new applications may be created at now.
func (g Grant) AcceptsApplications(now time.Time) bool {
	return g.Status == GrantOpen && !g.Expired(now)
}
