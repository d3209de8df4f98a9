package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RewardCategory tells where a ledger row came from
type RewardCategory string

const (
	RewardCategoryMission      RewardCategory = "mission"
	RewardCategoryRaffleTicket RewardCategory = "raffle_ticket" // debit: rifas spent on tickets
	RewardCategoryRafflePrize  RewardCategory = "raffle_prize"
	RewardCategoryBadge        RewardCategory = "badge"
)

// RewardGrant is one ledger row against a user's balance. Negative Rifas are debits.
type RewardGrant struct {
	ID           string         `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string         `gorm:"index;not null" json:"user_id"`
	Category     RewardCategory `gorm:"type:varchar(24);not null" json:"category"`
	Title        string         `gorm:"not null" json:"title"`
	Rifas        int64          `json:"rifas"`
	Cashback     float64        `json:"cashback"`
	SubmissionID *string        `gorm:"type:uuid;index" json:"submission_id,omitempty"`
	RaffleID     *string        `gorm:"type:uuid;index" json:"raffle_id,omitempty"`
	BadgeTypeID  *string        `gorm:"type:uuid" json:"badge_type_id,omitempty"`
	Viewed       bool           `gorm:"default:false;index" json:"viewed"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (r *RewardGrant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
