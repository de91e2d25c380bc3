package dto

import "time"

type AppointmentListDTO struct {
	ID          uint      `json:"id"`
	PublicCode  string    `json:"public_code"`
	ServiceName string    `json:"service_name"`
	UserName    string    `json:"user_name"`
	StartAtUTC  time.Time `json:"start_at_utc"`
	EndAtUTC    time.Time `json:"end_at_utc"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
	TotalCents  int       `json:"total_price_cents"`
}
