package models

import "time"

type SchedulingService struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CardID uint `gorm:"index:idx_service_card_active" json:"card_id"`
	Card   Card `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Name        string `gorm:"size:120;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	Timezone        string `gorm:"size:64;not null" json:"timezone"`
	DurationMinutes int    `gorm:"default:30" json:"duration_minutes"`

	// local | remote | onsite
	Type              string `gorm:"size:10;default:'remote'" json:"type"`
	VideoLinkTemplate string `gorm:"size:200" json:"video_link_template"`

	BufferBefore int `json:"buffer_before"`
	BufferAfter  int `json:"buffer_after"`
	LeadTimeMin  int `json:"lead_time_min"`
	CancelMin    int `json:"cancel_min"`
	ReschedMin   int `json:"resched_min"`

	IsActive   bool `gorm:"default:true;index:idx_service_card_active" json:"is_active"`
	PriceCents int  `json:"price_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
