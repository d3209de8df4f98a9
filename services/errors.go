package services

import "errors"

// Business-rule rejections reported by the finalizer. They reach callers verbatim.
var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrMissionNotFound      = errors.New("mission not found")
	ErrInvalidDecision      = errors.New("invalid decision: must be approve or reject")
	ErrInvalidStage         = errors.New("invalid validation stage")
	ErrStageNotConfigured   = errors.New("stage is not part of this mission's validation pipeline")
	ErrStageMismatch        = errors.New("submission is not awaiting a decision at this stage")
	ErrSubmissionTerminal   = errors.New("submission already has a final decision")
	ErrUnauthorizedApprover = errors.New("approver is not allowed to decide at this stage")
)

// Mission, raffle and badge errors.
var (
	ErrInvalidMission    = errors.New("invalid mission")
	ErrMissionNotOpen    = errors.New("mission is not accepting submissions")
	ErrInvalidPayload    = errors.New("invalid submission payload")
	ErrBadgeNotFound     = errors.New("badge type not found")
	ErrRaffleNotFound    = errors.New("raffle not found")
	ErrRaffleClosed      = errors.New("raffle is not accepting entries")
	ErrInvalidQuantity   = errors.New("ticket quantity must be between 1 and the per-purchase limit")
	ErrInsufficientRifas = errors.New("not enough rifas for this purchase")
	ErrInvalidRaffle     = errors.New("invalid raffle")
	ErrNotMissionOwner   = errors.New("mission belongs to another advertiser")
)

var businessRuleErrors = []error{
	ErrSubmissionNotFound, ErrMissionNotFound, ErrInvalidDecision, ErrInvalidStage,
	ErrStageNotConfigured, ErrStageMismatch, ErrSubmissionTerminal, ErrUnauthorizedApprover,
}

// IsBusinessRuleError reports whether err is a finalizer rejection rather than an infrastructure failure.
func IsBusinessRuleError(err error) bool {
	for _, target := range businessRuleErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
