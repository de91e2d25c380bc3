package models

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ServiceID uint              `gorm:"index:idx_appointment_service_start" json:"service_id"`
	Service   SchedulingService `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	UserName  string `gorm:"size:120;not null" json:"user_name"`
	UserEmail string `gorm:"size:100" json:"user_email"`
	UserPhone string `gorm:"size:40" json:"user_phone"`

	// human-shareable handle, "A" + 7 uppercase/digit chars
	PublicCode string    `gorm:"size:12;uniqueIndex;not null" json:"public_code"`
	Token      uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"-"`

	StartAtUTC time.Time `gorm:"index:idx_appointment_service_start" json:"start_at_utc"`
	EndAtUTC   time.Time `json:"end_at_utc"`

	// display timezone captured at booking time
	Timezone       string `gorm:"size:64" json:"timezone"`
	LocationChoice string `gorm:"size:10;default:'remote'" json:"location_choice"`

	// pending | confirmed | denied | cancelled | no_show
	Status string `gorm:"size:20;default:'pending';index" json:"status"`

	TotalPriceCents int `json:"total_price_cents"`

	CancelledAt *time.Time `json:"cancelled_at"`

	Selections []AppointmentSelection `gorm:"foreignKey:AppointmentID" json:"selections"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppointmentSelection snapshots one resolved option selection at booking
// time, so later edits to the option catalog never rewrite history.
type AppointmentSelection struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID uint        `gorm:"index" json:"appointment_id"`
	Appointment   Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	OptionID uint  `json:"option_id"`
	ChoiceID *uint `json:"choice_id"`

	Label                string `gorm:"size:120" json:"label"`
	TextValue            string `gorm:"size:100" json:"text_value"`
	PriceDeltaCents      int    `json:"price_delta_cents"`
	ExtraDurationMinutes int    `json:"extra_duration_minutes"`

	CreatedAt time.Time `json:"created_at"`
}
