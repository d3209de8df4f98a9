package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"mission-rewards-system/models"

	"gorm.io/gorm"
)

// MaxTicketsPerPurchase bounds a single BuyTickets call.
const MaxTicketsPerPurchase = 1000

type RaffleService struct {
	DB *gorm.DB
	// Rand returns a uniform value in [0, n). Tests replace it.
	Rand func(n int64) int64
	Now  func() time.Time
}

func NewRaffleService(db *gorm.DB) *RaffleService {
	return &RaffleService{DB: db, Rand: rand.Int64N, Now: time.Now}
}

type CreateRaffleRequest struct {
	Title           string    `json:"title"`
	Prize           string    `json:"prize"`
	TicketCostRifas int64     `json:"ticket_cost_rifas"`
	DrawAt          time.Time `json:"draw_at"`
}

func (s *RaffleService) CreateRaffle(ctx context.Context, req CreateRaffleRequest) (*models.Raffle, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRaffle)
	}
	if req.TicketCostRifas <= 0 {
		return nil, fmt.Errorf("%w: ticket cost must be positive", ErrInvalidRaffle)
	}
	if !req.DrawAt.After(s.Now()) {
		return nil, fmt.Errorf("%w: draw_at must be in the future", ErrInvalidRaffle)
	}

	raffle := &models.Raffle{
		Title:           strings.TrimSpace(req.Title),
		Prize:           req.Prize,
		TicketCostRifas: req.TicketCostRifas,
		DrawAt:          req.DrawAt,
		Status:          models.RaffleStatusOpen,
	}
	if err := s.DB.WithContext(ctx).Create(raffle).Error; err != nil {
		return nil, err
	}
	log.Printf("🎟️ [RAFFLE] Created %q (%s), draw at %s", raffle.Title, raffle.ID, raffle.DrawAt.Format(time.RFC3339))
	return raffle, nil
}

// RaffleView adds the countdown and sold tickets to a raffle.
type RaffleView struct {
	models.Raffle
	SecondsUntilDraw int64 `json:"seconds_until_draw"`
	TicketsSold      int64 `json:"tickets_sold"`
}

func (s *RaffleService) view(ctx context.Context, r models.Raffle) (RaffleView, error) {
	var sold int64
	if err := s.DB.WithContext(ctx).Model(&models.RaffleTicket{}).
		Where("raffle_id = ?", r.ID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sold).Error; err != nil {
		return RaffleView{}, err
	}
	return RaffleView{
		Raffle:           r,
		SecondsUntilDraw: int64(r.TimeUntilDraw(s.Now()) / time.Second),
		TicketsSold:      sold,
	}, nil
}

func (s *RaffleService) ListOpen(ctx context.Context) ([]RaffleView, error) {
	var raffles []models.Raffle
	if err := s.DB.WithContext(ctx).
		Where("status = ?", models.RaffleStatusOpen).
		Order("draw_at ASC").
		Find(&raffles).Error; err != nil {
		return nil, err
	}
	out := make([]RaffleView, 0, len(raffles))
	for _, r := range raffles {
		v, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *RaffleService) Get(ctx context.Context, raffleID string) (*RaffleView, error) {
	var r models.Raffle
	if err := s.DB.WithContext(ctx).Where("id = ?", raffleID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRaffleNotFound
		}
		return nil, err
	}
	v, err := s.view(ctx, r)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// TicketPreview reports how many tickets userID's current rifas can buy.
func (s *RaffleService) TicketPreview(ctx context.Context, raffleID, userID string) (int64, error) {
	var raffle models.Raffle
	if err := s.DB.WithContext(ctx).Where("id = ?", raffleID).First(&raffle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRaffleNotFound
		}
		return 0, err
	}
	var bal models.UserBalance
	err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).First(&bal).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return raffle.TicketsFor(bal.Rifas), nil
}

// BuyTickets spends rifas on quantity tickets. The debit only applies when the balance covers it.
func (s *RaffleService) BuyTickets(ctx context.Context, raffleID, userID string, quantity int64) (*models.RaffleTicket, error) {
	if quantity <= 0 || quantity > MaxTicketsPerPurchase {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	var ticket *models.RaffleTicket
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle models.Raffle
		if err := lockForUpdate(tx).Where("id = ?", raffleID).First(&raffle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRaffleNotFound
			}
			return err
		}
		if !raffle.AcceptsEntries(s.Now()) {
			return ErrRaffleClosed
		}

		if raffle.TicketCostRifas <= 0 || quantity > math.MaxInt64/raffle.TicketCostRifas {
			return fmt.Errorf("%w: %d tickets at %d rifas", ErrInvalidQuantity, quantity, raffle.TicketCostRifas)
		}
		cost := raffle.TicketCostRifas * quantity
		res := tx.Model(&models.UserBalance{}).
			Where("external_user_id = ? AND rifas >= ?", userID, cost).
			Update("rifas", gorm.Expr("rifas - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientRifas
		}

		raffleRef := raffle.ID
		if err := tx.Create(&models.RewardGrant{
			UserID:   userID,
			Category: models.RewardCategoryRaffleTicket,
			Title:    raffle.Title,
			Rifas:    -cost,
			RaffleID: &raffleRef,
			Viewed:   true,
		}).Error; err != nil {
			return err
		}

		ticket = &models.RaffleTicket{
			RaffleID:   raffle.ID,
			UserID:     userID,
			Quantity:   quantity,
			RifasSpent: cost,
		}
		return tx.Create(ticket).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🎟️ [RAFFLE] %s bought %d ticket(s) for %s", userID, quantity, raffleID)
	return ticket, nil
}

type ticketWeight struct {
	UserID  string
	Tickets int64
}

// DrawDue draws every open raffle whose draw time has passed. Each ticket is one chance.
// Raffles with no tickets are cancelled. Returns how many raffles were closed.
func (s *RaffleService) DrawDue(ctx context.Context) (int, error) {
	var due []models.Raffle
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND draw_at <= ?", models.RaffleStatusOpen, s.Now()).
		Find(&due).Error; err != nil {
		return 0, err
	}

	closed := 0
	for _, r := range due {
		if err := s.draw(ctx, r.ID); err != nil {
			log.Printf("❌ [RAFFLE] Draw failed for %s: %v", r.ID, err)
			continue
		}
		closed++
	}
	return closed, nil
}

func (s *RaffleService) draw(ctx context.Context, raffleID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var raffle models.Raffle
		if err := lockForUpdate(tx).Where("id = ?", raffleID).First(&raffle).Error; err != nil {
			return err
		}
		if raffle.Status != models.RaffleStatusOpen {
			return nil
		}

		var weights []ticketWeight
		if err := tx.Model(&models.RaffleTicket{}).
			Select("user_id, SUM(quantity) AS tickets").
			Where("raffle_id = ?", raffle.ID).
			Group("user_id").
			Order("user_id ASC").
			Scan(&weights).Error; err != nil {
			return err
		}

		now := s.Now()
		var total int64
		for _, w := range weights {
			if w.Tickets < 0 || total > math.MaxInt64-w.Tickets {
				return fmt.Errorf("raffle %s: ticket count out of range", raffle.ID)
			}
			total += w.Tickets
		}
		if total <= 0 {
			log.Printf("🎟️ [RAFFLE] %s closed without tickets", raffle.ID)
			return tx.Model(&raffle).Updates(map[string]interface{}{
				"status":   models.RaffleStatusCancelled,
				"drawn_at": now,
			}).Error
		}

		pick := s.Rand(total)
		winner := weights[len(weights)-1].UserID
		for _, w := range weights {
			if pick < w.Tickets {
				winner = w.UserID
				break
			}
			pick -= w.Tickets
		}

		if err := tx.Model(&raffle).Updates(map[string]interface{}{
			"status":         models.RaffleStatusDrawn,
			"winner_user_id": winner,
			"drawn_at":       now,
		}).Error; err != nil {
			return err
		}

		title := raffle.Prize
		if title == "" {
			title = raffle.Title
		}
		raffleRef := raffle.ID
		if err := tx.Create(&models.RewardGrant{
			UserID:   winner,
			Category: models.RewardCategoryRafflePrize,
			Title:    title,
			RaffleID: &raffleRef,
		}).Error; err != nil {
			return err
		}
		log.Printf("🏆 [RAFFLE] %s drawn: winner %s (%d tickets in play)", raffle.ID, winner, total)
		return nil
	})
}
