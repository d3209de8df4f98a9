// services/reward_service.go
package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"mission-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RewardService struct {
	DB *gorm.DB
}

func NewRewardService(db *gorm.DB) *RewardService {
	return &RewardService{DB: db}
}

// Balance returns the user's balance; users who never earned anything get a zero balance.
func (s *RewardService) Balance(ctx context.Context, externalUserID string) (*models.UserBalance, error) {
	var bal models.UserBalance
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserBalance{ExternalUserID: externalUserID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &bal, nil
}

// --- User Handlers ---

// GetBalance returns rifas and cashback for the authenticated user
func (s *RewardService) GetBalance(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	bal, err := s.Balance(c.UserContext(), userID)
	if err != nil {
		log.Printf("DB Error fetching balance: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch balance"})
	}
	return c.JSON(fiber.Map{
		"rifas":                      bal.Rifas,
		"cashback":                   bal.Cashback,
		"total_approved_submissions": bal.TotalApprovedSubmissions,
		"total_rifas_earned":         bal.TotalRifasEarned,
		"last_credit_at":             bal.LastCreditAt,
	})
}

// GetUserRewards lists ledger rows for the *authenticated* user
func (s *RewardService) GetUserRewards(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	limitStr := c.Query("limit")       // e.g., limit=10
	viewedStr := c.Query("viewed")     // all (default), true, false
	categoryStr := c.Query("category") // mission, raffle_ticket, raffle_prize, badge

	query := s.DB.WithContext(c.UserContext()).Where("user_id = ?", userID)

	switch strings.ToLower(viewedStr) {
	case "true":
		query = query.Where("viewed = ?", true)
	case "false":
		query = query.Where("viewed = ?", false)
	}

	switch models.RewardCategory(categoryStr) {
	case "":
	case models.RewardCategoryMission, models.RewardCategoryRaffleTicket, models.RewardCategoryRafflePrize, models.RewardCategoryBadge:
		query = query.Where("category = ?", categoryStr)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid category parameter"})
	}

	query = query.Order("created_at DESC")
	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		query = query.Limit(l)
	}

	rewards := []models.RewardGrant{}
	if err := query.Find(&rewards).Error; err != nil {
		log.Printf("DB Error fetching user rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}
	return c.JSON(rewards)
}

// GetUserRewardCounts returns the total and unviewed ledger counts; the UI polls it.
func (s *RewardService) GetUserRewardCounts(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	var totalCount int64
	if err := s.DB.WithContext(c.UserContext()).Model(&models.RewardGrant{}).
		Where("user_id = ?", userID).
		Count(&totalCount).Error; err != nil {
		log.Printf("DB Error counting total rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting total rewards"})
	}

	var unviewedCount int64
	if err := s.DB.WithContext(c.UserContext()).Model(&models.RewardGrant{}).
		Where("user_id = ? AND viewed = ?", userID, false).
		Count(&unviewedCount).Error; err != nil {
		log.Printf("DB Error counting unviewed rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error counting unviewed rewards"})
	}

	return c.JSON(fiber.Map{
		"total_count":    totalCount,
		"unviewed_count": unviewedCount,
	})
}

// MarkRewardAsViewed marks a single ledger row as viewed (idempotent)
func (s *RewardService) MarkRewardAsViewed(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	rewardID := c.Params("id")

	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.RewardGrant
	if err := s.DB.WithContext(c.UserContext()).Where("id = ? AND user_id = ?", rewardID, userID).First(&reward).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found or not owned"})
		}
		log.Printf("DB error fetching reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if !reward.Viewed {
		if err := s.DB.WithContext(c.UserContext()).Model(&reward).Update("viewed", true).Error; err != nil {
			log.Printf("Failed to update viewed status: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark as viewed"})
		}
	}

	return c.JSON(fiber.Map{"message": "OK", "reward_id": reward.ID, "viewed": true})
}

// MarkAllRewardsAsViewed marks every ledger row of the user as viewed
func (s *RewardService) MarkAllRewardsAsViewed(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	result := s.DB.WithContext(c.UserContext()).Model(&models.RewardGrant{}).
		Where("user_id = ? AND viewed = ?", userID, false).
		Update("viewed", true)
	if result.Error != nil {
		log.Printf("Bulk mark viewed failed: %v", result.Error)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update rewards"})
	}

	return c.JSON(fiber.Map{
		"message":      "OK",
		"marked_count": result.RowsAffected,
	})
}
