package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-rewards-system/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinalizeService is the database-backed finalize_submission: it owns the
// validation pipeline state machine and the reward side effects of final approval.
type FinalizeService struct {
	DB *gorm.DB
}

func NewFinalizeService(db *gorm.DB) *FinalizeService {
	return &FinalizeService{DB: db}
}

var _ Finalizer = (*FinalizeService)(nil)

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
// SQLite serializes writers on its own.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// FinalizeSubmission applies one decision in a single transaction.
func (s *FinalizeService) FinalizeSubmission(ctx context.Context, p FinalizeParams) (*FinalizationResult, error) {
	if !p.Decision.Valid() {
		return nil, ErrInvalidDecision
	}
	if !p.Stage.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStage, p.Stage)
	}

	var result *FinalizationResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := lockForUpdate(tx).Where("id = ?", p.SubmissionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		var mission models.Mission
		if err := tx.Unscoped().Where("id = ?", sub.MissionID).First(&mission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMissionNotFound
			}
			return err
		}

		next, finalized, ok := models.NextStatus(p.Stage, mission.FinalStage, p.Decision)
		if !ok {
			return fmt.Errorf("%w: %s (final stage is %s)", ErrStageNotConfigured, p.Stage, mission.FinalStage)
		}
		if sub.Status.IsTerminal() {
			return fmt.Errorf("%w: status is %s", ErrSubmissionTerminal, sub.Status)
		}
		if sub.Status != p.Stage.AwaitingStatus() {
			return fmt.Errorf("%w: status is %s, stage %s expects %s",
				ErrStageMismatch, sub.Status, p.Stage, p.Stage.AwaitingStatus())
		}
		if p.Stage.IsAdvertiserStage() && mission.AdvertiserID != p.ApproverID {
			return fmt.Errorf("%w: %s does not own mission %s", ErrUnauthorizedApprover, p.ApproverID, mission.ID)
		}

		// compare-and-set: a concurrent decision that got here first leaves zero rows
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", sub.ID, sub.Status).
			Updates(map[string]interface{}{"status": next})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: submission changed concurrently", ErrStageMismatch)
		}

		if err := tx.Create(&models.SubmissionDecision{
			SubmissionID: sub.ID,
			ApproverID:   p.ApproverID,
			Stage:        p.Stage,
			Decision:     p.Decision,
			Feedback:     p.Feedback,
			FromStatus:   sub.Status,
			ToStatus:     next,
		}).Error; err != nil {
			return err
		}

		result = &FinalizationResult{SubmissionID: sub.ID, Status: next}
		badgeName := ""
		if finalized {
			var err error
			badgeName, err = creditMissionReward(tx, &sub, &mission, result)
			if err != nil {
				return err
			}
		}
		result.Summary = decisionSummary(p.Stage, result, badgeName)
		return nil
	})
	if err != nil {
		log.Printf("❌ [FINALIZER] %s/%s on %s by %s rejected: %v", p.Stage, p.Decision, p.SubmissionID, p.ApproverID, err)
		return nil, err
	}

	log.Printf("✅ [FINALIZER] %s/%s on %s by %s → %s (badge=%t, rifas=%d)",
		p.Stage, p.Decision, p.SubmissionID, p.ApproverID, result.Status, result.BadgeEarned, result.RifasCredited)
	return result, nil
}

// creditMissionReward pays the mission reward and grants its badge. Runs inside the
// finalization transaction; returns the granted badge name, if any.
func creditMissionReward(tx *gorm.DB, sub *models.Submission, mission *models.Mission, result *FinalizationResult) (string, error) {
	bal, err := ensureBalanceInTx(tx, sub.UserID)
	if err != nil {
		return "", err
	}

	now := time.Now()
	if err := tx.Model(&models.UserBalance{}).Where("id = ?", bal.ID).Updates(map[string]interface{}{
		"rifas":                      gorm.Expr("rifas + ?", mission.RewardRifas),
		"cashback":                   gorm.Expr("cashback + ?", mission.RewardCashback),
		"total_approved_submissions": gorm.Expr("total_approved_submissions + 1"),
		"total_rifas_earned":         gorm.Expr("total_rifas_earned + ?", mission.RewardRifas),
		"last_credit_at":             now,
	}).Error; err != nil {
		return "", fmt.Errorf("credit balance for %s: %w", sub.UserID, err)
	}

	subID := sub.ID
	missionGrant := models.RewardGrant{
		UserID:       sub.UserID,
		Category:     models.RewardCategoryMission,
		Title:        mission.Title,
		Rifas:        mission.RewardRifas,
		Cashback:     mission.RewardCashback,
		SubmissionID: &subID,
	}
	if err := tx.Create(&missionGrant).Error; err != nil {
		return "", err
	}
	result.RifasCredited = mission.RewardRifas
	result.CashbackCredited = mission.RewardCashback

	if mission.BadgeTypeID == nil {
		return "", nil
	}
	granted, bt, err := grantBadgeInTx(tx, sub.UserID, *mission.BadgeTypeID, &subID, datatypes.JSONMap{
		"mission_id": mission.ID,
	})
	if errors.Is(err, ErrBadgeNotFound) {
		log.Printf("⚠️ [FINALIZER] Mission %s references missing badge %s, paying without badge", mission.ID, *mission.BadgeTypeID)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("grant badge for mission %s: %w", mission.ID, err)
	}
	if !granted {
		return "", nil
	}

	result.BadgeEarned = true
	result.BadgeCode = bt.Code
	badgeTypeID := bt.ID
	if err := tx.Create(&models.RewardGrant{
		UserID:       sub.UserID,
		Category:     models.RewardCategoryBadge,
		Title:        bt.Name,
		SubmissionID: &subID,
		BadgeTypeID:  &badgeTypeID,
	}).Error; err != nil {
		return "", err
	}
	return bt.Name, nil
}

// ensureBalanceInTx returns the user's balance row, creating an empty one if needed.
func ensureBalanceInTx(tx *gorm.DB, externalUserID string) (*models.UserBalance, error) {
	seed := models.UserBalance{ExternalUserID: externalUserID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var bal models.UserBalance
	if err := lockForUpdate(tx).Where("external_user_id = ?", externalUserID).First(&bal).Error; err != nil {
		return nil, err
	}
	return &bal, nil
}

type badgeCandidate struct {
	SubmissionID string
	UserID       string
	MissionID    string
	BadgeTypeID  string
}

// RetroactivelyAwardBadges grants mission badges to finalized submissions that predate the
// badge being attached to the mission (or whose grant failed).
func (s *FinalizeService) RetroactivelyAwardBadges(ctx context.Context) (*RetroactiveAwardResult, error) {
	out := &RetroactiveAwardResult{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []badgeCandidate
		if err := tx.Raw(`
		SELECT s.id AS submission_id, s.user_id, s.mission_id, m.badge_type_id
		FROM submissions s
		INNER JOIN missions m ON m.id = s.mission_id
		WHERE s.status = ? AND m.badge_type_id IS NOT NULL
		  AND NOT EXISTS (
		    SELECT 1 FROM user_badges ub
		    WHERE ub.external_user_id = s.user_id AND ub.badge_type_id = m.badge_type_id
		  )
		ORDER BY s.submitted_at ASC
	`, models.StatusFinalizedApproved).Scan(&candidates).Error; err != nil {
			return err
		}
		out.Scanned = len(candidates)

		for _, c := range candidates {
			subID := c.SubmissionID
			granted, bt, err := grantBadgeInTx(tx, c.UserID, c.BadgeTypeID, &subID, datatypes.JSONMap{
				"mission_id":  c.MissionID,
				"retroactive": true,
			})
			if errors.Is(err, ErrBadgeNotFound) {
				log.Printf("⚠️ [FINALIZER] Mission %s references missing badge %s", c.MissionID, c.BadgeTypeID)
				continue
			}
			if err != nil {
				return err
			}
			if !granted {
				continue // same user, same badge, earlier submission in this batch
			}
			badgeTypeID := bt.ID
			if err := tx.Create(&models.RewardGrant{
				UserID:       c.UserID,
				Category:     models.RewardCategoryBadge,
				Title:        bt.Name,
				SubmissionID: &subID,
				BadgeTypeID:  &badgeTypeID,
			}).Error; err != nil {
				return err
			}
			out.Awarded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🎖️ [FINALIZER] Retroactive badges: scanned=%d awarded=%d", out.Scanned, out.Awarded)
	return out, nil
}
