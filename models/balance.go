package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserBalance holds a consumer's spendable rifas and cashback (denormalized from reward_grants)
type UserBalance struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	Rifas    int64   `json:"rifas" gorm:"default:0"`
	Cashback float64 `json:"cashback" gorm:"default:0"`

	// Lifetime counters
	TotalApprovedSubmissions int64 `json:"total_approved_submissions" gorm:"default:0"`
	TotalRifasEarned         int64 `json:"total_rifas_earned" gorm:"default:0"`

	LastCreditAt *time.Time `json:"last_credit_at,omitempty"`

	Timestamps
}

func (b *UserBalance) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
