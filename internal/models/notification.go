package models

import "time"

type Notification struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// sms | email
	Type string `gorm:"size:10;not null" json:"type"`
	To   string `gorm:"size:120;not null" json:"to"`

	TemplateCode string `gorm:"size:60;not null" json:"template_code"`
	PayloadJSON  string `gorm:"type:text" json:"payload_json"`

	// queued | sent | failed. Only "queued" is written here; an external
	// dispatcher owns the rest of the lifecycle.
	Status string `gorm:"size:20;default:'queued'" json:"status"`

	IdempotencyKey string `gorm:"size:120;uniqueIndex" json:"idempotency_key"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
