package models

import "time"

type MeteringEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID uint `gorm:"index" json:"user_id"`

	ResourceType string `gorm:"size:40;not null" json:"resource_type"`
	EventType    string `gorm:"size:40;not null" json:"event_type"`

	ServiceID     *uint `json:"service_id"`
	AppointmentID *uint `json:"appointment_id"`

	Quantity   int       `gorm:"default:1" json:"quantity"`
	OccurredAt time.Time `json:"occurred_at"`

	CreatedAt time.Time `json:"created_at"`
}
