package scheduling

import (
	"strings"

	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
)

const maxTextLength = 100

// OptionSelection is the tagged selection payload for one option group.
// Exactly one of ChoiceID / ChoiceIDs / Text is meaningful, decided by the
// option's declared kind.
type OptionSelection struct {
	OptionID  uint   `json:"option_id"`
	ChoiceID  *uint  `json:"choice_id,omitempty"`
	ChoiceIDs []uint `json:"choice_ids,omitempty"`
	Text      string `json:"text,omitempty"`
}

// ResolvedSelection snapshots a validated selection with its price and
// duration effect.
type ResolvedSelection struct {
	OptionID             uint
	ChoiceID             *uint
	Label                string
	TextValue            string
	PriceDeltaCents      int
	ExtraDurationMinutes int
}

func activeChoice(opt *models.ServiceOption, id uint) *models.OptionChoice {
	for i := range opt.Choices {
		ch := &opt.Choices[i]
		if ch.ID == id && ch.IsActive {
			return ch
		}
	}
	return nil
}

// ResolveSelections validates selections against the service's active
// options and returns their resolved snapshots. Required options must be
// selected, choices must be active and belong to their option, and multi
// selections must respect the option's min/max choice bounds.
func ResolveSelections(
	options []models.ServiceOption,
	selections []OptionSelection,
) ([]ResolvedSelection, error) {

	byID := make(map[uint]*models.ServiceOption, len(options))
	for i := range options {
		byID[options[i].ID] = &options[i]
	}

	seen := make(map[uint]bool, len(selections))
	var resolved []ResolvedSelection

	for _, sel := range selections {
		opt, ok := byID[sel.OptionID]
		if !ok || !opt.IsActive {
			return nil, httperr.ErrBusiness("option_invalid")
		}
		if seen[sel.OptionID] {
			return nil, httperr.ErrBusiness("option_duplicated")
		}
		seen[sel.OptionID] = true

		switch opt.Kind {
		case models.OptionSingle:
			if sel.ChoiceID == nil || len(sel.ChoiceIDs) > 0 || sel.Text != "" {
				return nil, httperr.ErrBusiness("option_selection_mismatch")
			}
			ch := activeChoice(opt, *sel.ChoiceID)
			if ch == nil {
				return nil, httperr.ErrBusiness("option_choice_invalid")
			}
			resolved = append(resolved, ResolvedSelection{
				OptionID:             opt.ID,
				ChoiceID:             &ch.ID,
				Label:                ch.Label,
				PriceDeltaCents:      ch.PriceDeltaCents,
				ExtraDurationMinutes: ch.ExtraDurationMinutes,
			})

		case models.OptionMulti:
			if sel.ChoiceID != nil || sel.Text != "" {
				return nil, httperr.ErrBusiness("option_selection_mismatch")
			}
			n := len(sel.ChoiceIDs)
			if n < opt.MinChoices {
				return nil, httperr.ErrBusiness("option_min_choices")
			}
			if opt.MaxChoices != nil && n > *opt.MaxChoices {
				return nil, httperr.ErrBusiness("option_max_choices")
			}
			chosen := make(map[uint]bool, n)
			for _, id := range sel.ChoiceIDs {
				if chosen[id] {
					return nil, httperr.ErrBusiness("option_choice_duplicated")
				}
				chosen[id] = true
				ch := activeChoice(opt, id)
				if ch == nil {
					return nil, httperr.ErrBusiness("option_choice_invalid")
				}
				resolved = append(resolved, ResolvedSelection{
					OptionID:             opt.ID,
					ChoiceID:             &ch.ID,
					Label:                ch.Label,
					PriceDeltaCents:      ch.PriceDeltaCents,
					ExtraDurationMinutes: ch.ExtraDurationMinutes,
				})
			}

		case models.OptionText:
			if sel.ChoiceID != nil || len(sel.ChoiceIDs) > 0 {
				return nil, httperr.ErrBusiness("option_selection_mismatch")
			}
			text := strings.TrimSpace(sel.Text)
			if text == "" || len(text) > maxTextLength {
				return nil, httperr.ErrBusiness("option_text_invalid")
			}
			resolved = append(resolved, ResolvedSelection{
				OptionID:  opt.ID,
				Label:     opt.Name,
				TextValue: text,
			})

		default:
			return nil, httperr.ErrBusiness("option_invalid")
		}
	}

	for i := range options {
		if options[i].IsActive && options[i].Required && !seen[options[i].ID] {
			return nil, httperr.ErrBusiness("option_required")
		}
	}

	return resolved, nil
}
