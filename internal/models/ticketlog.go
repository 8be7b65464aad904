package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketLog is one resolved admission ticket, kept for the dashboard's
// history views
type TicketLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TicketID   uuid.UUID `gorm:"type:uuid;index" json:"ticket_id"`
	Tier       string    `gorm:"index" json:"tier"`
	Outcome    string    `gorm:"index" json:"outcome"`
	WeightCost int       `json:"weight_cost"`
	OrdersCost int       `json:"orders_cost"`
	EnqueuedAt time.Time `gorm:"index" json:"enqueued_at"`
	ResolvedAt time.Time `json:"resolved_at"`
	WaitMs     int64     `json:"wait_ms"`
}

func (TicketLog) TableName() string {
	return "ticket_logs"
}
