package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BadgeType: static config (seeded from BadgeCatalog or created by admins)
type BadgeType struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"` // e.g., "first-mission", "checkin-explorer"
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IconURL     string    `gorm:"type:text" json:"icon_url"`                         // R2 URL to SVG/png
	Rarity      string    `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *BadgeType) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// UserBadge: awarded instance (one per user and badge type)
type UserBadge struct {
	ID             string            `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string            `gorm:"uniqueIndex:idx_user_badge;not null" json:"external_user_id"`
	BadgeTypeID    string            `gorm:"uniqueIndex:idx_user_badge;type:uuid;not null" json:"badge_type_id"`
	SubmissionID   *string           `gorm:"type:uuid;index" json:"submission_id,omitempty"`
	AwardedAt      time.Time         `gorm:"autoCreateTime" json:"awarded_at"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"` // e.g., {"mission_id": "...", "retroactive": true}
}

func (b *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BadgeCatalog is seeded on startup; missions reference these by ID.
var BadgeCatalog = []BadgeType{
	{
		Code:        "first-mission",
		Name:        "Primeira Missão",
		Description: "Completed a first mission",
		Rarity:      "common",
	},
	{
		Code:        "checkin-explorer",
		Name:        "Explorador",
		Description: "Checked in at a partner store",
		Rarity:      "common",
	},
	{
		Code:        "content-creator",
		Name:        "Criador de Conteúdo",
		Description: "Had a link or file proof approved",
		Rarity:      "rare",
	},
	{
		Code:        "brand-ambassador",
		Name:        "Embaixador",
		Description: "Approved on a sponsored campaign",
		Rarity:      "epic",
	},
}
