package models

import "time"

type Card struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OwnerID uint `json:"owner_id"`
	Owner   User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Title    string `gorm:"size:120;not null" json:"title"`
	Nickname string `gorm:"size:100;uniqueIndex;not null" json:"nickname"`
	Status   string `gorm:"size:20;default:'draft'" json:"status"`

	// destination for owner-facing booking/reschedule alerts; empty disables them
	NotificationPhone string `gorm:"size:40" json:"notification_phone"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
