package models

import "time"

const (
	OptionSingle = "single"
	OptionMulti  = "multi"
	OptionText   = "text"
)

// ServiceOption is a typed add-on group offered with a service. Single and
// multi kinds enumerate their bookable choices via OptionChoice rows; text
// kinds capture a free-text value at booking time.
type ServiceOption struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ServiceID uint              `gorm:"index" json:"service_id"`
	Service   SchedulingService `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Name string `gorm:"size:120;not null" json:"name"`

	// single | multi | text
	Kind       string `gorm:"size:10;default:'single'" json:"kind"`
	MinChoices int    `json:"min_choices"`
	MaxChoices *int   `json:"max_choices"`
	Required   bool   `json:"required"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Choices []OptionChoice `gorm:"foreignKey:OptionID" json:"choices"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OptionChoice is one selectable entry of a single/multi option. Choosing it
// extends the appointment's total duration and price.
type OptionChoice struct {
	ID uint `gorm:"primaryKey" json:"id"`

	OptionID uint          `gorm:"index" json:"option_id"`
	Option   ServiceOption `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	Label                string `gorm:"size:120;not null" json:"label"`
	PriceDeltaCents      int    `json:"price_delta_cents"`
	ExtraDurationMinutes int    `json:"extra_duration_minutes"`
	IsActive             bool   `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
