// services/users.go
package services

import (
	"context"
	"strings"

	"mission-rewards-system/models"

	"gorm.io/gorm"
)

// ProfileService reads the local consumer_profiles mirror.
type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// ProfileSummary avoids exposing internal fields; ExternalUserID is the key clients use.
type ProfileSummary struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
}

// SearchProfiles searches username and email, case-insensitively.
func (s *ProfileService) SearchProfiles(ctx context.Context, query string, limit int) ([]ProfileSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var profiles []models.ConsumerProfile
	db := s.DB.WithContext(ctx).Model(&models.ConsumerProfile{}).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}
	if err := db.Find(&profiles).Error; err != nil {
		return nil, err
	}

	res := make([]ProfileSummary, len(profiles))
	for i, p := range profiles {
		res[i] = ProfileSummary{
			ExternalUserID: p.ExternalUserID,
			Username:       p.Username,
			Email:          p.Email,
		}
	}
	return res, nil
}

// UsernamesFor maps external user IDs to usernames; unknown IDs are absent.
func (s *ProfileService) UsernamesFor(ctx context.Context, externalUserIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(externalUserIDs))
	if len(externalUserIDs) == 0 {
		return out, nil
	}
	var profiles []models.ConsumerProfile
	if err := s.DB.WithContext(ctx).
		Select("external_user_id", "username").
		Where("external_user_id IN ?", externalUserIDs).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ExternalUserID] = p.Username
	}
	return out, nil
}
