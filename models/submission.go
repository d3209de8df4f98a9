package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ValidationStage is a position in the advertiser → admin → advertiser approval pipeline.
type ValidationStage string

const (
	StageAdvertiserFirst  ValidationStage = "advertiser_first"
	StageAdmin            ValidationStage = "admin"
	StageAdvertiserSecond ValidationStage = "advertiser_second"
)

// Stages in pipeline order.
var Stages = []ValidationStage{StageAdvertiserFirst, StageAdmin, StageAdvertiserSecond}

// Decision is a single moderator verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

type SubmissionStatus string

const (
	StatusPendingApproval          SubmissionStatus = "pending_approval"
	StatusAdvertiserFirstApproved  SubmissionStatus = "advertiser_first_approved"
	StatusAdminApproved            SubmissionStatus = "admin_approved"
	StatusFinalizedApproved        SubmissionStatus = "finalized_approved"
	StatusRejectedAdvertiserFirst  SubmissionStatus = "rejected_at_advertiser_first"
	StatusRejectedAdmin            SubmissionStatus = "rejected_at_admin"
	StatusRejectedAdvertiserSecond SubmissionStatus = "rejected_at_advertiser_second"
)

// Valid reports whether s is one of the known stages.
func (s ValidationStage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the pipeline position of s, or -1 if unknown.
func (s ValidationStage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// AwaitingStatus is the status a submission must hold for a decision at s to apply.
func (s ValidationStage) AwaitingStatus() SubmissionStatus {
	switch s {
	case StageAdvertiserFirst:
		return StatusPendingApproval
	case StageAdmin:
		return StatusAdvertiserFirstApproved
	case StageAdvertiserSecond:
		return StatusAdminApproved
	}
	return ""
}

// ApprovedStatus is the status after an approve at s that is not the final stage.
func (s ValidationStage) ApprovedStatus() SubmissionStatus {
	switch s {
	case StageAdvertiserFirst:
		return StatusAdvertiserFirstApproved
	case StageAdmin:
		return StatusAdminApproved
	case StageAdvertiserSecond:
		return StatusFinalizedApproved
	}
	return ""
}

// RejectedStatus is the terminal status after a reject at s.
func (s ValidationStage) RejectedStatus() SubmissionStatus {
	return SubmissionStatus("rejected_at_" + string(s))
}

// IsAdvertiserStage is true for the two stages decided by the mission's advertiser.
func (s ValidationStage) IsAdvertiserStage() bool {
	return s == StageAdvertiserFirst || s == StageAdvertiserSecond
}

func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusFinalizedApproved, StatusRejectedAdvertiserFirst, StatusRejectedAdmin, StatusRejectedAdvertiserSecond:
		return true
	}
	return false
}

func (s SubmissionStatus) IsRejected() bool {
	switch s {
	case StatusRejectedAdvertiserFirst, StatusRejectedAdmin, StatusRejectedAdvertiserSecond:
		return true
	}
	return false
}

// NextStatus computes the status produced by decision d at stage, given the mission's
// last configured stage. ok is false when the stage is beyond finalStage.
func NextStatus(stage, finalStage ValidationStage, d Decision) (next SubmissionStatus, finalized bool, ok bool) {
	if !stage.Valid() || !finalStage.Valid() || stage.Index() > finalStage.Index() {
		return "", false, false
	}
	if d == DecisionReject {
		return stage.RejectedStatus(), false, true
	}
	if stage == finalStage {
		return StatusFinalizedApproved, true, true
	}
	return stage.ApprovedStatus(), false, true
}

// Submission is one consumer's proof of completing a mission.
type Submission struct {
	ID            string            `gorm:"primaryKey;type:uuid" json:"id"`
	MissionID     string            `gorm:"type:uuid;index;not null" json:"mission_id"`
	UserID        string            `gorm:"index;not null" json:"user_id"`
	Payload       datatypes.JSONMap `json:"payload"` // text, link, coordinates or file_key
	Status        SubmissionStatus  `gorm:"type:varchar(40);index;not null;default:'pending_approval'" json:"status"`
	SubmittedAt   time.Time         `gorm:"not null" json:"submitted_at"`
	FeedbackScore *int              `json:"feedback_score,omitempty"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = StatusPendingApproval
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now()
	}
	return nil
}

// FileKey returns the R2 object key of a file proof, if the payload carries one.
func (s *Submission) FileKey() string {
	if s.Payload == nil {
		return ""
	}
	key, _ := s.Payload["file_key"].(string)
	return key
}

// SubmissionDecision is the audit row written for every accepted decision.
type SubmissionDecision struct {
	ID           string           `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string           `gorm:"type:uuid;index;not null" json:"submission_id"`
	ApproverID   string           `gorm:"index;not null" json:"approver_id"`
	Stage        ValidationStage  `gorm:"type:varchar(32);not null" json:"stage"`
	Decision     Decision         `gorm:"type:varchar(16);not null" json:"decision"`
	Feedback     string           `gorm:"type:text" json:"feedback,omitempty"`
	FromStatus   SubmissionStatus `gorm:"type:varchar(40);not null" json:"from_status"`
	ToStatus     SubmissionStatus `gorm:"type:varchar(40);not null" json:"to_status"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (d *SubmissionDecision) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
