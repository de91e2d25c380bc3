package metering

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tapcard-io/scheduler/internal/models"
)

const (
	ResourceAppointment       = "appointment"
	EventAppointmentConfirmed = "appointment_confirmed"
)

// Recorder is the metering collaborator. The confirmation flows call it
// exactly once per pending->confirmed edge.
type Recorder interface {
	AppointmentConfirmed(ctx context.Context, ownerID uint, ap *models.Appointment) error
}

type GormRecorder struct {
	db *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

func (r *GormRecorder) AppointmentConfirmed(
	ctx context.Context,
	ownerID uint,
	ap *models.Appointment,
) error {

	ev := models.MeteringEvent{
		UserID:        ownerID,
		ResourceType:  ResourceAppointment,
		EventType:     EventAppointmentConfirmed,
		ServiceID:     &ap.ServiceID,
		AppointmentID: &ap.ID,
		Quantity:      1,
		OccurredAt:    time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Create(&ev).Error
}

var _ Recorder = (*GormRecorder)(nil)
