package services

import (
	"context"
	"fmt"
	"log"

	"mission-rewards-system/models"
)

// DecisionInput is one human moderation decision. The caller has already checked that
// the approver may act at Stage.
type DecisionInput struct {
	SubmissionID string
	ApproverID   string
	Decision     models.Decision
	Stage        models.ValidationStage
	Feedback     string // only meaningful on reject
}

// DecisionOutcome is either Success with a Result, or a failure with a non-empty Error.
type DecisionOutcome struct {
	Success bool                `json:"success"`
	Result  *FinalizationResult `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func failedOutcome(msg string) DecisionOutcome {
	if msg == "" {
		msg = "finalize_submission failed"
	}
	return DecisionOutcome{Success: false, Error: msg}
}

// DecisionRecorder forwards decisions to the Finalizer. It keeps no state, performs no
// retry or deduplication, and never fails upward: every error ends up in the outcome.
type DecisionRecorder struct {
	finalizer Finalizer
}

func NewDecisionRecorder(f Finalizer) *DecisionRecorder {
	return &DecisionRecorder{finalizer: f}
}

func (r *DecisionRecorder) RecordDecision(ctx context.Context, in DecisionInput) (out DecisionOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [MODERATION] finalizer panicked for submission %s: %v", in.SubmissionID, rec)
			out = failedOutcome(fmt.Sprintf("finalize_submission panicked: %v", rec))
		}
	}()

	result, err := r.finalizer.FinalizeSubmission(ctx, FinalizeParams{
		SubmissionID: in.SubmissionID,
		ApproverID:   in.ApproverID,
		Decision:     in.Decision,
		Stage:        in.Stage,
		Feedback:     in.Feedback,
	})
	if err != nil {
		log.Printf("⚠️ [MODERATION] Decision %s@%s on %s by %s failed: %v",
			in.Decision, in.Stage, in.SubmissionID, in.ApproverID, err)
		return failedOutcome(err.Error())
	}
	if result == nil {
		return failedOutcome("finalize_submission returned no result")
	}

	log.Printf("✅ [MODERATION] Decision %s@%s on %s by %s → %s",
		in.Decision, in.Stage, in.SubmissionID, in.ApproverID, result.Status)
	return DecisionOutcome{Success: true, Result: result}
}
