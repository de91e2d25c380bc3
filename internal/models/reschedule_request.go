package models

import "time"

type RescheduleRequest struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AppointmentID uint        `gorm:"index:idx_resched_appointment_status" json:"appointment_id"`
	Appointment   Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	// requested | approved | rejected | expired
	Status string `gorm:"size:20;default:'requested';index:idx_resched_appointment_status" json:"status"`

	// customer | owner
	RequestedBy string `gorm:"size:20;default:'customer'" json:"requested_by"`

	ApprovedByID *uint `json:"approved_by_id"`
	ApprovedBy   *User `gorm:"foreignKey:ApprovedByID;constraint:OnDelete:SET NULL;" json:"-"`

	Reason       string `gorm:"size:500" json:"reason"`
	OwnerMessage string `gorm:"size:500" json:"owner_message"`

	// the slot the customer asked for
	RequestedStartAtUTC *time.Time `json:"requested_start_at_utc"`
	RequestedEndAtUTC   *time.Time `json:"requested_end_at_utc"`

	// the slot the owner approved; may differ from the requested one
	NewStartAtUTC *time.Time `json:"new_start_at_utc"`
	NewEndAtUTC   *time.Time `json:"new_end_at_utc"`

	ExpiresAt   *time.Time `json:"expires_at"`
	RequestedIP string     `gorm:"size:45" json:"-"`
	ActionIP    string     `gorm:"size:45" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
