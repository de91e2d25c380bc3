package notify

import (
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tapcard-io/scheduler/internal/models"
)

// Store persists notification requests for the external delivery worker.
// The core never sends anything itself.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save enqueues one notification row. Rows sharing an idempotency key are
// written once; the conflict is silently dropped so retried emits dedupe.
func (s *Store) Save(req Request) error {
	var payload string
	if req.Payload != nil {
		if b, err := json.Marshal(req.Payload); err == nil {
			payload = string(b)
		}
	}

	n := models.Notification{
		Type:           req.Type,
		To:             req.To,
		TemplateCode:   req.TemplateCode,
		PayloadJSON:    payload,
		Status:         "queued",
		IdempotencyKey: req.IdempotencyKey,
	}

	return s.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(&n).Error
}
