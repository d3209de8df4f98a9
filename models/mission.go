// models/mission.go
package models

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"gorm.io/gorm"
)

const (
	MissionTypeText    = "text"
	MissionTypeLink    = "link"
	MissionTypeCheckIn = "checkin"
	MissionTypeFile    = "file"
)

type MissionStatus string

const (
	MissionStatusDraft     MissionStatus = "draft"
	MissionStatusPublished MissionStatus = "published"
	MissionStatusArchived  MissionStatus = "archived"
)

// Mission is a task an advertiser publishes for consumers.
type Mission struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	AdvertiserID string `gorm:"index;not null" json:"advertiser_id"`
	Title        string `gorm:"not null" json:"title"`
	Slug         string `gorm:"uniqueIndex;not null" json:"slug"`
	SearchTitle  string `gorm:"index" json:"-"` // accent-folded, lowercase title for LIKE search
	Description  string `gorm:"type:text" json:"description"`
	Type         string `gorm:"type:varchar(16);not null" json:"type"`

	// 🎁 Rewards paid when a submission reaches finalized_approved
	RewardRifas    int64   `gorm:"default:0" json:"reward_rifas"`
	RewardCashback float64 `gorm:"default:0" json:"reward_cashback"`
	BadgeTypeID    *string `gorm:"type:uuid;index" json:"badge_type_id,omitempty"`

	// Last validation stage this mission requires; approval there finalizes.
	FinalStage ValidationStage `gorm:"type:varchar(32);not null;default:'advertiser_second'" json:"final_stage"`

	Status MissionStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`

	Timestamps
}

func (m *Mission) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Slug == "" {
		// suffix keeps slugs unique across advertisers reusing a title
		m.Slug = slug.Make(m.Title) + "-" + m.ID[:8]
	}
	if m.FinalStage == "" {
		m.FinalStage = StageAdvertiserSecond
	}
	if m.Status == "" {
		m.Status = MissionStatusDraft
	}
	m.SearchTitle = FoldSearchText(m.Title)
	return nil
}

// FoldSearchText lowercases and strips accents ("Missão Café" → "missao cafe").
func FoldSearchText(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}
