package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"time"

	"mission-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IconUploader stores badge artwork and returns its public URL.
type IconUploader interface {
	UploadFile(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error)
}

type BadgeService struct {
	DB    *gorm.DB
	Icons IconUploader // optional
}

func NewBadgeService(db *gorm.DB, icons IconUploader) *BadgeService {
	return &BadgeService{DB: db, Icons: icons}
}

// SeedCatalog inserts the built-in badge types that are missing (idempotent)
func (s *BadgeService) SeedCatalog(ctx context.Context) error {
	for _, b := range models.BadgeCatalog {
		badge := b
		if err := s.DB.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
			Create(&badge).Error; err != nil {
			return fmt.Errorf("seed badge %s: %w", b.Code, err)
		}
	}
	return nil
}

// CreateBadgeType derives the code from the name and uploads the icon when one is given.
func (s *BadgeService) CreateBadgeType(ctx context.Context, name, description, rarity string, icon *multipart.FileHeader) (*models.BadgeType, error) {
	if name == "" {
		return nil, fmt.Errorf("badge name is required")
	}
	switch rarity {
	case "":
		rarity = "common"
	case "common", "rare", "epic", "legendary":
	default:
		return nil, fmt.Errorf("unknown rarity %q", rarity)
	}

	badge := &models.BadgeType{
		ID:          uuid.NewString(),
		Code:        slug.Make(name),
		Name:        name,
		Description: description,
		Rarity:      rarity,
	}

	if icon != nil && s.Icons != nil {
		ext := filepath.Ext(icon.Filename)
		if ext == "" {
			ext = ".png"
		}
		url, err := s.Icons.UploadFile(ctx, icon, "badges/"+badge.Code+ext)
		if err != nil {
			return nil, fmt.Errorf("upload badge icon: %w", err)
		}
		badge.IconURL = url
	}

	if err := s.DB.WithContext(ctx).Create(badge).Error; err != nil {
		return nil, err
	}
	return badge, nil
}

func (s *BadgeService) ListCatalog(ctx context.Context) ([]models.BadgeType, error) {
	var badges []models.BadgeType
	err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&badges).Error
	return badges, err
}

// UserBadgeView joins an award with its badge type for display.
type UserBadgeView struct {
	ID          string            `json:"id"`
	BadgeTypeID string            `json:"badge_type_id"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IconURL     string            `json:"icon_url"`
	Rarity      string            `json:"rarity"`
	AwardedAt   time.Time         `json:"awarded_at"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
}

func (s *BadgeService) ListUserBadges(ctx context.Context, externalUserID string) ([]UserBadgeView, error) {
	var awards []models.UserBadge
	if err := s.DB.WithContext(ctx).
		Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&awards).Error; err != nil {
		return nil, err
	}
	if len(awards) == 0 {
		return []UserBadgeView{}, nil
	}

	ids := make([]string, 0, len(awards))
	for _, a := range awards {
		ids = append(ids, a.BadgeTypeID)
	}
	var types []models.BadgeType
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&types).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.BadgeType, len(types))
	for _, bt := range types {
		byID[bt.ID] = bt
	}

	out := make([]UserBadgeView, 0, len(awards))
	for _, a := range awards {
		bt := byID[a.BadgeTypeID]
		out = append(out, UserBadgeView{
			ID:          a.ID,
			BadgeTypeID: a.BadgeTypeID,
			Code:        bt.Code,
			Name:        bt.Name,
			Description: bt.Description,
			IconURL:     bt.IconURL,
			Rarity:      bt.Rarity,
			AwardedAt:   a.AwardedAt,
			Metadata:    a.Metadata,
		})
	}
	return out, nil
}

// grantBadgeInTx awards badgeTypeID to the user unless already owned.
// Must run inside the caller's transaction.
func grantBadgeInTx(tx *gorm.DB, externalUserID, badgeTypeID string, submissionID *string, metadata datatypes.JSONMap) (bool, *models.BadgeType, error) {
	var bt models.BadgeType
	if err := tx.Where("id = ?", badgeTypeID).First(&bt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, ErrBadgeNotFound
		}
		return false, nil, err
	}

	var count int64
	if err := tx.Model(&models.UserBadge{}).
		Where("external_user_id = ? AND badge_type_id = ?", externalUserID, badgeTypeID).
		Count(&count).Error; err != nil {
		return false, nil, err
	}
	if count > 0 {
		return false, &bt, nil
	}

	award := models.UserBadge{
		ExternalUserID: externalUserID,
		BadgeTypeID:    badgeTypeID,
		SubmissionID:   submissionID,
		Metadata:       metadata,
	}
	if err := tx.Create(&award).Error; err != nil {
		return false, nil, err
	}
	log.Printf("🎖️ [BADGE] Badge awarded: %s → %s", bt.Code, externalUserID)
	return true, &bt, nil
}
