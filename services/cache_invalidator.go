package services

import "mission-rewards-system/cache"

// Invalidator is the part of the cache registry mutating components need.
type Invalidator interface {
	Invalidate(group string)
}

// SubmissionCacheInvalidator marks mission and submission reads stale after a decision.
type SubmissionCacheInvalidator struct {
	cache Invalidator
}

func NewSubmissionCacheInvalidator(c Invalidator) *SubmissionCacheInvalidator {
	return &SubmissionCacheInvalidator{cache: c}
}

// AfterDecision invalidates both groups once when the outcome succeeded, and does
// nothing otherwise.
func (i *SubmissionCacheInvalidator) AfterDecision(out DecisionOutcome) {
	if !out.Success {
		return
	}
	i.cache.Invalidate(cache.GroupMissions)
	i.cache.Invalidate(cache.GroupMissionSubmissions)
}
