package applications

import "github.com/emilythestrangee/vamp/backend/internal/models"

// sponsorTargets is the transition table for sponsor decisions. The source
// state is unrestricted: a decision can be revisited, so APPROVED and
// REJECTED are not sinks.
var sponsorTargets = map[models.ApplicationStatus]bool{
	models.ApplicationReviewing: true,
	models.ApplicationApproved:  true,
	models.ApplicationRejected:  true,
}

// CanTransition reports whether a sponsor may move an application from one
// status to another. WITHDRAWN and PENDING are never targets.
func CanTransition(from, to models.ApplicationStatus) bool {
	return from.Valid() && sponsorTargets[to]
}

// SponsorTargets lists the statuses a sponsor may set, in display order.
func SponsorTargets() []models.ApplicationStatus {
	return []models.ApplicationStatus{
		models.ApplicationReviewing,
		models.ApplicationApproved,
		models.ApplicationRejected,
	}
}
