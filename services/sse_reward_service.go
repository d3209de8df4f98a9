package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mission-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	ssePollInterval = 2 * time.Second
	sseHeartbeat    = 25 * time.Second
)

// latestGrantTime is the stream cursor: only rows created after it are pushed.
func (s *RewardService) latestGrantTime(userID string) time.Time {
	var latest models.RewardGrant
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("⚠️ [SSE] cursor init failed for %s: %v", userID, err)
		}
		return time.Time{}
	}
	return latest.CreatedAt
}

// StreamUserRewardsSSE pushes new ledger rows (mission credits, badges, raffle prizes)
// to the authenticated user as they are written. Each row is one "reward" event whose
// id is the ledger row id.
func (s *RewardService) StreamUserRewardsSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	cursor := s.latestGrantTime(userID)
	done := c.Context().Done()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		poll := time.NewTicker(ssePollInterval)
		defer poll.Stop()
		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		fmt.Fprint(w, "retry: 5000\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-poll.C:
				var rows []models.RewardGrant
				if err := s.DB.
					Where("user_id = ? AND created_at > ?", userID, cursor).
					Order("created_at ASC").
					Find(&rows).Error; err != nil {
					log.Printf("⚠️ [SSE] query failed for %s: %v", userID, err)
					continue
				}
				if len(rows) == 0 {
					continue
				}
				cursor = rows[len(rows)-1].CreatedAt

				for _, r := range rows {
					payload, err := json.Marshal(r)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "id: %s\nevent: reward\ndata: %s\n\n", r.ID, payload)
				}
				if err := w.Flush(); err != nil {
					return // client gone
				}

			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-done:
				return
			}
		}
	})

	return nil
}
