package workflow

import (
	"context"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

// FinalizeDealInput is the wire body of the two snapshot finalize endpoints.
// All monetary/quantity fields bind from decimal strings or numbers; they are
// re-serialized as decimal strings before canonicalization so the hash is
// stable across runtimes with different float formatting.
type FinalizeDealInput struct {
	DealId         string            `json:"dealId" validate:"required"`
	Number         string            `json:"number" validate:"required"`
	Stage          models.FlowMode   `json:"stage" validate:"required,flowmode"`
	Status         models.DealStatus `json:"status" validate:"required"`
	OrgId          string            `json:"orgId"`
	LocationId     string            `json:"locationId"`
	CustomerId     string            `json:"customerId"`
	VendorId       string            `json:"vendorId"`
	Currency       string            `json:"currency" validate:"required"`
	SourceOfDemand SourceOfDemand    `json:"sourceOfDemand"`
	Lines          []FinalizeLine    `json:"lines" validate:"required,min=1,dive"`
	Totals         FinalizeTotals    `json:"totals"`
	Cadence        string            `json:"cadence"`
	Meta           map[string]any    `json:"meta"`
}

type SourceOfDemand struct {
	Type  models.DemandType `json:"type"`
	RefId string            `json:"refId"`
}

type FinalizeLine struct {
	Sku       string          `json:"sku"`
	ItemName  string          `json:"itemName" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}

type FinalizeTotals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxTotal decimal.Decimal `json:"taxTotal"`
	Total    decimal.Decimal `json:"total"`
}

// FinalizeResult is the success response body. Payload is the canonical JSON
// string; clients re-parse it.
type FinalizeResult struct {
	Ok       bool   `json:"ok"`
	DealId   string `json:"dealId"`
	At       string `json:"at"`
	Stage    string `json:"stage"`
	Number   string `json:"number"`
	Currency string `json:"currency"`
	Hash     string `json:"hash"`
	Version  int    `json:"version"`
	File     string `json:"file"`
	Payload  string `json:"payload"`
}

func (input *FinalizeDealInput) validate(expected models.FlowMode) error {
	if err := utils.Validate().Struct(input); err != nil {
		return utils.NewValidationError("invalid finalize request: %s", err.Error())
	}
	if input.Stage != expected {
		return utils.NewValidationError("stage must be %q for this endpoint, got %q", expected, input.Stage)
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("status %q is not allowed; expected one of draft, proposed, approved, confirmed", input.Status)
	}
	if !input.SourceOfDemand.Type.IsValid() {
		return utils.NewValidationError("sourceOfDemand.type %q is not allowed", input.SourceOfDemand.Type)
	}
	for _, total := range []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", input.Totals.Subtotal},
		{"taxTotal", input.Totals.TaxTotal},
		{"total", input.Totals.Total},
	} {
		if total.value.Sign() < 0 {
			return utils.NewValidationError("totals.%s must not be negative", total.name)
		}
	}
	return nil
}

// snapshotPayload builds the stage-tagged payload that gets canonicalized
// and hashed. Every field is present in every payload (optional ids as empty
// strings) so logically equal submissions always canonicalize identically.
// Timestamps deliberately live on the stored record, not in the payload:
// hashing a wall clock would break resubmission idempotency.
func (input *FinalizeDealInput) snapshotPayload() map[string]any {
	lines := make([]any, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, map[string]any{
			"sku":       l.Sku,
			"itemName":  l.ItemName,
			"qty":       l.Qty.String(),
			"unitPrice": l.UnitPrice.String(),
			"taxRate":   l.TaxRate.String(),
		})
	}

	payload := map[string]any{
		"dealId":     input.DealId,
		"number":     input.Number,
		"stage":      string(input.Stage),
		"status":     string(input.Status),
		"currency":   input.Currency,
		"orgId":      input.OrgId,
		"locationId": input.LocationId,
		"customerId": input.CustomerId,
		"vendorId":   input.VendorId,
		"sourceOfDemand": map[string]any{
			"type":  string(input.SourceOfDemand.Type),
			"refId": input.SourceOfDemand.RefId,
		},
		"lines": lines,
		"totals": map[string]any{
			"subtotal": input.Totals.Subtotal.String(),
			"taxTotal": input.Totals.TaxTotal.String(),
			"total":    input.Totals.Total.String(),
		},
		"cadence": input.Cadence,
	}
	if input.Meta != nil {
		payload["meta"] = input.Meta
	}
	return payload
}

// SnapshotFile returns the content-addressed object name for a snapshot.
func SnapshotFile(dealId string, hash string) string {
	return dealId + "-" + hash[:12] + ".json"
}

// FinalizeEqualsSnapshot validates a stage-tagged payload and persists it
// write-once. Finalizing the same content twice yields the same hash and the
// second call is a successful no-op — at most one distinct snapshot per
// (dealId, content).
func FinalizeEqualsSnapshot(ctx context.Context, gw Gateway, blobs BlobStore, notify Notifier, expected models.FlowMode, input *FinalizeDealInput) (*FinalizeResult, error) {
	if err := input.validate(expected); err != nil {
		return nil, err
	}

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		orgId = input.OrgId
	}

	canonical, hash, err := utils.CanonicalHash(input.snapshotPayload())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	file := SnapshotFile(input.DealId, hash)
	snap := models.EqualsSnapshot{
		OrgId:        orgId,
		DealId:       input.DealId,
		ContentHash:  hash,
		Stage:        input.Stage,
		Number:       input.Number,
		CurrencyCode: input.Currency,
		Version:      models.EqualsSnapshotSchemaVersion,
		Payload:      canonical,
		File:         file,
		At:           now,
	}

	created, err := gw.CreateSnapshotOnce(ctx, &snap)
	if err != nil {
		return nil, err
	}

	if created && blobs != nil {
		// The DB row is the source of truth; a blob mirror failure is logged,
		// not surfaced.
		if err := blobs.PutIfAbsent(ctx, file, []byte(canonical)); err != nil {
			config.LogError(config.GetLogger(), "equalsSnapshot.go", "FinalizeEqualsSnapshot", "PutIfAbsent", file, err)
		}
	}
	if created && notify != nil {
		notify.Notify(ctx, stampEvent(ctx, Event{
			Type:   EventSnapshotFinalized,
			OrgId:  orgId,
			DealId: input.DealId,
			Data:   map[string]any{"hash": hash, "stage": string(input.Stage)},
		}))
	}

	return &FinalizeResult{
		Ok:       true,
		DealId:   input.DealId,
		At:       now.Format(time.RFC3339),
		Stage:    string(input.Stage),
		Number:   input.Number,
		Currency: input.Currency,
		Hash:     hash,
		Version:  models.EqualsSnapshotSchemaVersion,
		File:     file,
		Payload:  canonical,
	}, nil
}
