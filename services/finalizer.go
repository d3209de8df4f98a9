package services

import (
	"context"

	"mission-rewards-system/models"
)

// FinalizeParams mirrors finalize_submission(p_submission_id, p_approver_id, p_decision, p_stage).
type FinalizeParams struct {
	SubmissionID string                 `json:"p_submission_id"`
	ApproverID   string                 `json:"p_approver_id"`
	Decision     models.Decision        `json:"p_decision"`
	Stage        models.ValidationStage `json:"p_stage"`
	Feedback     string                 `json:"p_feedback,omitempty"`
}

// FinalizationResult is what the finalizer reports after applying a decision.
type FinalizationResult struct {
	SubmissionID     string                  `json:"submission_id"`
	Status           models.SubmissionStatus `json:"status"`
	BadgeEarned      bool                    `json:"badge_earned"`
	BadgeCode        string                  `json:"badge_code,omitempty"`
	RifasCredited    int64                   `json:"rifas_credited"`
	CashbackCredited float64                 `json:"cashback_credited"`
	Summary          string                  `json:"summary,omitempty"`
}

type RetroactiveAwardResult struct {
	Scanned int `json:"scanned"`
	Awarded int `json:"awarded"`
}

// Finalizer atomically applies one moderation decision and computes its rewards.
// Implementations serialize conflicting decisions for the same submission.
type Finalizer interface {
	FinalizeSubmission(ctx context.Context, p FinalizeParams) (*FinalizationResult, error)
	RetroactivelyAwardBadges(ctx context.Context) (*RetroactiveAwardResult, error)
}
