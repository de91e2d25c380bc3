package scheduling

import (
	"context"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

// MaxServicesPerCard caps the scheduling services one card may offer.
const MaxServicesPerCard = 10

type CreateService struct {
	repo domain.Repository
}

func NewCreateService(repo domain.Repository) *CreateService {
	return &CreateService{repo: repo}
}

// Execute validates and creates a service for one of the owner's cards.
// The per-card cap is enforced under a row lock on the card, so two
// concurrent creates cannot both squeeze past the limit.
func (uc *CreateService) Execute(
	ctx context.Context,
	ownerID uint,
	cardID uint,
	svc *models.SchedulingService,
) (*models.SchedulingService, error) {

	card, err := uc.repo.GetCardForOwner(ctx, cardID, ownerID)
	if err != nil {
		return nil, err
	}

	if svc.DurationMinutes <= 0 {
		return nil, httperr.ErrBusiness("invalid_duration")
	}
	if !timezone.IsValid(svc.Timezone) {
		return nil, httperr.ErrBusiness("invalid_timezone")
	}
	switch svc.Type {
	case "local", "remote", "onsite":
	default:
		return nil, httperr.ErrBusiness("invalid_service_type")
	}

	svc.CardID = card.ID

	if err := uc.repo.CreateServiceCapped(ctx, svc, MaxServicesPerCard); err != nil {
		return nil, err
	}

	return svc, nil
}
