package models

import "time"

const (
	RuleWeekly       = "weekly"
	RuleDateOverride = "date_override"
	RuleHoliday      = "holiday"
)

// ServiceAvailability is one declarative rule. Weekly rules carry a weekday
// (0=Mon .. 6=Sun) plus local start/end times; date overrides carry an exact
// date plus times; holidays carry only a date and zero out that whole day.
type ServiceAvailability struct {
	ID uint `gorm:"primaryKey" json:"id"`

	ServiceID uint              `gorm:"index:idx_availability_service_rule" json:"service_id"`
	Service   SchedulingService `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	RuleType string `gorm:"size:20;not null;index:idx_availability_service_rule" json:"rule_type"`

	Weekday   *int   `json:"weekday"`
	StartTime string `gorm:"size:5" json:"start_time"` // "15:04" local
	EndTime   string `gorm:"size:5" json:"end_time"`
	Date      string `gorm:"size:10" json:"date"` // "2006-01-02"

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
