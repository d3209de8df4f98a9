package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RaffleStatus string

const (
	RaffleStatusOpen      RaffleStatus = "open"
	RaffleStatusDrawn     RaffleStatus = "drawn"
	RaffleStatusCancelled RaffleStatus = "cancelled" // drawn with no tickets sold
)

// Raffle is a prize draw consumers enter by spending rifas on tickets.
type Raffle struct {
	ID              string       `gorm:"primaryKey;type:uuid" json:"id"`
	Title           string       `gorm:"not null" json:"title"`
	Prize           string       `json:"prize"`
	TicketCostRifas int64        `gorm:"not null" json:"ticket_cost_rifas"`
	DrawAt          time.Time    `gorm:"index;not null" json:"draw_at"`
	Status          RaffleStatus `gorm:"type:varchar(16);index;not null;default:'open'" json:"status"`
	WinnerUserID    *string      `json:"winner_user_id,omitempty"`
	DrawnAt         *time.Time   `json:"drawn_at,omitempty"`
	Timestamps
}

func (r *Raffle) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RaffleStatusOpen
	}
	return nil
}

// TimeUntilDraw is the countdown shown to consumers, never negative.
func (r *Raffle) TimeUntilDraw(now time.Time) time.Duration {
	if d := r.DrawAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// AcceptsEntries reports whether tickets can still be bought at now.
func (r *Raffle) AcceptsEntries(now time.Time) bool {
	return r.Status == RaffleStatusOpen && now.Before(r.DrawAt)
}

// TicketsFor converts a rifa amount to whole tickets.
func (r *Raffle) TicketsFor(rifas int64) int64 {
	if r.TicketCostRifas <= 0 || rifas <= 0 {
		return 0
	}
	return rifas / r.TicketCostRifas
}

// RaffleTicket records a purchase of Quantity tickets.
type RaffleTicket struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	RaffleID   string    `gorm:"type:uuid;index;not null" json:"raffle_id"`
	UserID     string    `gorm:"index;not null" json:"user_id"`
	Quantity   int64     `gorm:"not null" json:"quantity"`
	RifasSpent int64     `gorm:"not null" json:"rifas_spent"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *RaffleTicket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
