package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"mission-rewards-system/cache"
	"mission-rewards-system/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProofSigner hands out short-lived download URLs for file proofs.
type ProofSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

const proofURLTTL = 15 * time.Minute

type MissionService struct {
	DB       *gorm.DB
	Cache    *cache.Registry
	Proofs   ProofSigner // optional
	Profiles *ProfileService
}

func NewMissionService(db *gorm.DB, registry *cache.Registry, proofs ProofSigner, profiles *ProfileService) *MissionService {
	return &MissionService{DB: db, Cache: registry, Proofs: proofs, Profiles: profiles}
}

// CreateMissionRequest is what an advertiser sends to publish a mission.
type CreateMissionRequest struct {
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Type           string                 `json:"type"`
	RewardRifas    int64                  `json:"reward_rifas"`
	RewardCashback float64                `json:"reward_cashback"`
	BadgeTypeID    *string                `json:"badge_type_id,omitempty"`
	FinalStage     models.ValidationStage `json:"final_stage,omitempty"`
	Publish        bool                   `json:"publish"`
}

func (s *MissionService) CreateMission(ctx context.Context, advertiserID string, req CreateMissionRequest) (*models.Mission, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidMission)
	}
	switch req.Type {
	case models.MissionTypeText, models.MissionTypeLink, models.MissionTypeCheckIn, models.MissionTypeFile:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMission, req.Type)
	}
	if req.RewardRifas < 0 || req.RewardCashback < 0 {
		return nil, fmt.Errorf("%w: rewards cannot be negative", ErrInvalidMission)
	}
	if req.FinalStage == "" {
		req.FinalStage = models.StageAdvertiserSecond
	}
	if !req.FinalStage.Valid() {
		return nil, fmt.Errorf("%w: unknown final stage %q", ErrInvalidMission, req.FinalStage)
	}
	if req.BadgeTypeID != nil {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.BadgeType{}).Where("id = ?", *req.BadgeTypeID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrBadgeNotFound
		}
	}

	mission := &models.Mission{
		AdvertiserID:   advertiserID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Type:           req.Type,
		RewardRifas:    req.RewardRifas,
		RewardCashback: req.RewardCashback,
		BadgeTypeID:    req.BadgeTypeID,
		FinalStage:     req.FinalStage,
		Status:         models.MissionStatusDraft,
	}
	if req.Publish {
		mission.Status = models.MissionStatusPublished
	}
	if err := s.DB.WithContext(ctx).Create(mission).Error; err != nil {
		return nil, err
	}

	s.Cache.Invalidate(cache.GroupMissions)
	log.Printf("📣 [MISSION] %s created mission %q (%s, status=%s)", advertiserID, mission.Title, mission.ID, mission.Status)
	return mission, nil
}

// SetMissionStatus lets the owning advertiser publish or archive a mission.
func (s *MissionService) SetMissionStatus(ctx context.Context, missionID, advertiserID string, status models.MissionStatus) (*models.Mission, error) {
	switch status {
	case models.MissionStatusDraft, models.MissionStatusPublished, models.MissionStatusArchived:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidMission, status)
	}

	var mission models.Mission
	if err := s.DB.WithContext(ctx).Where("id = ?", missionID).First(&mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	if mission.AdvertiserID != advertiserID {
		return nil, ErrNotMissionOwner
	}

	mission.Status = status
	if err := s.DB.WithContext(ctx).Model(&mission).Update("status", status).Error; err != nil {
		return nil, err
	}
	s.Cache.Invalidate(cache.GroupMissions)
	return &mission, nil
}

// ListPublished returns published missions, optionally filtered by an accent-insensitive title search.
func (s *MissionService) ListPublished(ctx context.Context, query string, page, size int) ([]models.Mission, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	folded := models.FoldSearchText(query)
	key := fmt.Sprintf("published:%s:%d:%d", folded, page, size)

	return cache.Remember(s.Cache, cache.GroupMissions, key, func() ([]models.Mission, error) {
		q := s.DB.WithContext(ctx).Where("status = ?", models.MissionStatusPublished)
		if folded != "" {
			q = q.Where("search_title LIKE ?", "%"+folded+"%")
		}
		missions := []models.Mission{}
		err := q.Order("created_at DESC").Limit(size).Offset((page - 1) * size).Find(&missions).Error
		return missions, err
	})
}

// GetMission looks a mission up by id or slug.
func (s *MissionService) GetMission(ctx context.Context, idOrSlug string) (*models.Mission, error) {
	return cache.Remember(s.Cache, cache.GroupMissions, "mission:"+idOrSlug, func() (*models.Mission, error) {
		var mission models.Mission
		err := s.DB.WithContext(ctx).Where("id = ? OR slug = ?", idOrSlug, idOrSlug).First(&mission).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		if err != nil {
			return nil, err
		}
		return &mission, nil
	})
}

// SubmitProof records a consumer's attempt at a published mission.
func (s *MissionService) SubmitProof(ctx context.Context, missionID, userID string, payload map[string]interface{}) (*models.Submission, error) {
	mission, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status != models.MissionStatusPublished {
		return nil, ErrMissionNotOpen
	}
	if err := validatePayload(mission.Type, payload); err != nil {
		return nil, err
	}

	sub := &models.Submission{
		MissionID: mission.ID,
		UserID:    userID,
		Payload:   datatypes.JSONMap(payload),
		Status:    models.StatusPendingApproval,
	}
	if err := s.DB.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	s.Cache.Invalidate(cache.GroupMissionSubmissions)
	return sub, nil
}

func validatePayload(missionType string, payload map[string]interface{}) error {
	str := func(k string) string {
		v, _ := payload[k].(string)
		return strings.TrimSpace(v)
	}
	switch missionType {
	case models.MissionTypeText:
		if str("text") == "" {
			return fmt.Errorf("%w: text is required", ErrInvalidPayload)
		}
	case models.MissionTypeLink:
		u, err := url.Parse(str("url"))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: a valid http(s) url is required", ErrInvalidPayload)
		}
	case models.MissionTypeCheckIn:
		lat, okLat := payload["lat"].(float64)
		lng, okLng := payload["lng"].(float64)
		if !okLat || !okLng || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return fmt.Errorf("%w: lat/lng coordinates are required", ErrInvalidPayload)
		}
	case models.MissionTypeFile:
		if str("file_key") == "" {
			return fmt.Errorf("%w: file_key is required", ErrInvalidPayload)
		}
	}
	return nil
}

// QueueItem is a submission awaiting a decision, with display data for moderators.
type QueueItem struct {
	models.Submission
	MissionTitle string `json:"mission_title"`
	Username     string `json:"username,omitempty"`
}

// ModerationQueue lists submissions awaiting a decision at stage. Advertiser stages only
// show the approver's own missions; pass an empty approverID for the admin stage.
func (s *MissionService) ModerationQueue(ctx context.Context, stage models.ValidationStage, approverID string) ([]QueueItem, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	key := fmt.Sprintf("queue:%s:%s", stage, approverID)

	return cache.Remember(s.Cache, cache.GroupMissionSubmissions, key, func() ([]QueueItem, error) {
		q := s.DB.WithContext(ctx).
			Table("submissions").
			Select("submissions.*, missions.title AS mission_title").
			Joins("INNER JOIN missions ON missions.id = submissions.mission_id").
			Where("submissions.status = ?", stage.AwaitingStatus())
		if stage.IsAdvertiserStage() {
			q = q.Where("missions.advertiser_id = ?", approverID)
		}

		var rows []QueueItem
		if err := q.Order("submissions.submitted_at ASC").Scan(&rows).Error; err != nil {
			return nil, err
		}
		if s.Profiles != nil && len(rows) > 0 {
			ids := make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.UserID)
			}
			names, err := s.Profiles.UsernamesFor(ctx, ids)
			if err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].Username = names[rows[i].UserID]
			}
		}
		if rows == nil {
			rows = []QueueItem{}
		}
		return rows, nil
	})
}

// ListMissionSubmissions returns every submission of a mission owned by advertiserID.
func (s *MissionService) ListMissionSubmissions(ctx context.Context, missionID, advertiserID string) ([]models.Submission, error) {
	mission, err := s.GetMission(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if mission.AdvertiserID != advertiserID {
		return nil, ErrNotMissionOwner
	}
	return cache.Remember(s.Cache, cache.GroupMissionSubmissions, "mission:"+mission.ID, func() ([]models.Submission, error) {
		subs := []models.Submission{}
		err := s.DB.WithContext(ctx).Where("mission_id = ?", mission.ID).Order("submitted_at DESC").Find(&subs).Error
		return subs, err
	})
}

// SubmissionView is the moderator's detail view of one submission.
type SubmissionView struct {
	Submission models.Submission           `json:"submission"`
	Mission    models.Mission              `json:"mission"`
	Decisions  []models.SubmissionDecision `json:"decisions"`
	ProofURL   string                      `json:"proof_url,omitempty"`
}

func (s *MissionService) GetSubmission(ctx context.Context, submissionID string) (*SubmissionView, error) {
	var view SubmissionView
	if err := s.DB.WithContext(ctx).Where("id = ?", submissionID).First(&view.Submission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Unscoped().Where("id = ?", view.Submission.MissionID).First(&view.Mission).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	view.Decisions = []models.SubmissionDecision{}
	if err := s.DB.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC").
		Find(&view.Decisions).Error; err != nil {
		return nil, err
	}

	if key := view.Submission.FileKey(); key != "" && s.Proofs != nil {
		proofURL, err := s.Proofs.PresignGet(ctx, key, proofURLTTL)
		if err != nil {
			// the decision can still be made from the other fields
			log.Printf("⚠️ [MISSION] Failed to presign proof %s for submission %s: %v", key, submissionID, err)
		} else {
			view.ProofURL = proofURL
		}
	}
	return &view, nil
}
