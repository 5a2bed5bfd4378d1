package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
)

// TransitionRejectedError wraps a stage-law rejection so handlers can
// distinguish it from infrastructure failures.
type TransitionRejectedError struct {
	Decision TransitionDecision
}

func (e *TransitionRejectedError) Error() string { return e.Decision.Reason }

// AdvanceDealStage moves a deal to a target stage under the stage law and
// stamps the implied status. The law's gate flags are derived from the
// persisted deal: pricelock presence, confirmed status, lock flag.
func AdvanceDealStage(ctx context.Context, notify Notifier, dealId string, to models.Stage) (*models.Deal, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	deal, err := models.FindDealByDealId(ctx, orgId, dealId)
	if err != nil {
		return nil, err
	}

	decision := CanTransition(TransitionInput{
		Flow:         deal.FlowMode,
		From:         deal.Stage,
		To:           to,
		HasPricelock: deal.HasPricelock(time.Now()),
		HasDeal:      deal.Status == models.DealStatusConfirmed,
		Locked:       deal.IsLocked(),
	})
	if !decision.OK {
		return nil, &TransitionRejectedError{Decision: decision}
	}

	status := StatusFor(to)
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ?", deal.ID).
		Updates(map[string]interface{}{"stage": to, "status": status}).Error; err != nil {
		return nil, err
	}
	deal.Stage = to
	deal.Status = status

	if notify != nil {
		notify.Notify(ctx, stampEvent(ctx, Event{
			Type:   EventDealAdvanced,
			OrgId:  orgId,
			DealId: dealId,
			Data:   map[string]any{"stage": string(to), "status": string(status)},
		}))
	}
	return deal, nil
}

// AdvanceDealToNext moves a deal one step forward in its flow sequence.
func AdvanceDealToNext(ctx context.Context, notify Notifier, dealId string) (*models.Deal, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}
	deal, err := models.FindDealByDealId(ctx, orgId, dealId)
	if err != nil {
		return nil, err
	}
	next, ok := NextStage(deal.FlowMode, deal.Stage)
	if !ok {
		return nil, &TransitionRejectedError{Decision: reject(TransitionInvalid, "Stage DONE is terminal; no further transitions.")}
	}
	return AdvanceDealStage(ctx, notify, dealId, next)
}
