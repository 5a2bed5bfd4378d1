package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

type AdjustReportInput struct {
	BookingId  int             `json:"bookingId"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Note       string          `json:"note"`
	DocRefs    []string        `json:"docRefs"`
}

type AdjustReportResult struct {
	Ok       bool   `json:"ok"`
	DealId   string `json:"dealId"`
	BaseHash string `json:"baseHash"`
	Hash     string `json:"hash"`
	Version  int    `json:"version"`
	At       string `json:"at"`
	File     string `json:"file"`
	Payload  string `json:"payload"`
}

// AdjustReport loads the latest BDO equals snapshot for the booking's deal,
// scales every line quantity by the multiplier (3 dp, weight-based
// adjustments), recomputes totals and writes a new snapshot linked to the
// base via baseHash. The adjusted snapshot is write-once at its own content
// address, so re-running the same adjustment against the same base and
// multiplier is idempotent.
func AdjustReport(ctx context.Context, gw Gateway, blobs BlobStore, notify Notifier, input *AdjustReportInput) (*AdjustReportResult, error) {
	if input.BookingId <= 0 {
		return nil, utils.NewValidationError("bookingId is required")
	}
	if input.Multiplier.Sign() <= 0 {
		return nil, utils.NewValidationError("multiplier must be a positive number")
	}

	orgId, _ := utils.GetOrgIdFromContext(ctx)

	booking, err := gw.FindBooking(ctx, orgId, input.BookingId)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %d: %w", input.BookingId, utils.ErrorRecordNotFound)
	}

	dealRef, err := gw.BookingDealRef(ctx, orgId, input.BookingId)
	if err != nil {
		return nil, err
	}
	if dealRef == "" {
		return nil, fmt.Errorf("deal for booking %d: %w", input.BookingId, utils.ErrorRecordNotFound)
	}

	base, err := gw.LatestSnapshot(ctx, orgId, dealRef, models.FlowModeBDO)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("equals snapshot for deal %s: %w", dealRef, utils.ErrorRecordNotFound)
	}

	payload, err := decodePayload(base.Payload)
	if err != nil {
		return nil, utils.NewCorruptDataError(fmt.Sprintf("snapshot %s payload does not parse", base.ContentHash), err)
	}

	if err := scaleLines(payload, input.Multiplier); err != nil {
		return nil, err
	}
	appendAdjustment(payload, base.ContentHash, input)

	canonical, hash, err := utils.CanonicalHash(payload)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	file := SnapshotFile(dealRef, hash)
	baseHash := base.ContentHash
	snap := models.EqualsSnapshot{
		OrgId:        orgId,
		DealId:       dealRef,
		ContentHash:  hash,
		Stage:        base.Stage,
		Number:       base.Number,
		CurrencyCode: base.CurrencyCode,
		Version:      base.Version + 1,
		BaseHash:     &baseHash,
		Payload:      canonical,
		File:         file,
		At:           now,
	}

	created, err := gw.CreateSnapshotOnce(ctx, &snap)
	if err != nil {
		return nil, err
	}
	if created && blobs != nil {
		if err := blobs.PutIfAbsent(ctx, file, []byte(canonical)); err != nil {
			config.LogError(config.GetLogger(), "reportingAdjust.go", "AdjustReport", "PutIfAbsent", file, err)
		}
	}
	if created && notify != nil {
		notify.Notify(ctx, stampEvent(ctx, Event{
			Type:   EventReportAdjusted,
			OrgId:  orgId,
			DealId: dealRef,
			Data: map[string]any{
				"baseHash":   baseHash,
				"hash":       hash,
				"multiplier": input.Multiplier.String(),
			},
		}))
	}

	return &AdjustReportResult{
		Ok:       true,
		DealId:   dealRef,
		BaseHash: baseHash,
		Hash:     hash,
		Version:  snap.Version,
		At:       now.Format(time.RFC3339),
		File:     file,
		Payload:  canonical,
	}, nil
}

func decodePayload(raw string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func decimalField(line map[string]any, key string) (decimal.Decimal, error) {
	v, ok := line[key]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	switch t := v.(type) {
	case string:
		return decimal.NewFromString(t)
	case json.Number:
		return decimal.NewFromString(t.String())
	default:
		return decimal.Zero, fmt.Errorf("field %q has unexpected type %T", key, v)
	}
}

// scaleLines multiplies every line qty by m (3 dp) and recomputes the totals
// block (2 dp money): subtotal = sum(qty*price), taxTotal =
// sum(qty*price*rate), total = subtotal + taxTotal.
func scaleLines(payload map[string]any, m decimal.Decimal) error {
	rawLines, ok := payload["lines"].([]any)
	if !ok || len(rawLines) == 0 {
		return utils.NewCorruptDataError("snapshot payload has no lines", nil)
	}

	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for i, rawLine := range rawLines {
		line, ok := rawLine.(map[string]any)
		if !ok {
			return utils.NewCorruptDataError(fmt.Sprintf("snapshot line %d is not an object", i), nil)
		}
		qty, err := decimalField(line, "qty")
		if err != nil {
			return utils.NewCorruptDataError(fmt.Sprintf("snapshot line %d", i), err)
		}
		unitPrice, err := decimalField(line, "unitPrice")
		if err != nil {
			return utils.NewCorruptDataError(fmt.Sprintf("snapshot line %d", i), err)
		}
		taxRate, err := decimalField(line, "taxRate")
		if err != nil {
			return utils.NewCorruptDataError(fmt.Sprintf("snapshot line %d", i), err)
		}

		adjQty := qty.Mul(m).Round(3)
		line["qty"] = adjQty.StringFixed(3)

		lineAmount := adjQty.Mul(unitPrice)
		subtotal = subtotal.Add(lineAmount)
		taxTotal = taxTotal.Add(lineAmount.Mul(taxRate))
	}

	payload["totals"] = map[string]any{
		"subtotal": subtotal.StringFixed(2),
		"taxTotal": taxTotal.StringFixed(2),
		"total":    subtotal.Add(taxTotal).StringFixed(2),
	}
	return nil
}

// appendAdjustment records the audit trail entry under meta.adjustments.
// The entry is deliberately deterministic (no wall clock): the adjusted
// snapshot's content address must be identical across retries of the same
// base+multiplier; timestamps live on the stored record instead.
func appendAdjustment(payload map[string]any, baseHash string, input *AdjustReportInput) {
	meta, _ := payload["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	entry := map[string]any{
		"baseHash":   baseHash,
		"multiplier": input.Multiplier.String(),
		"bookingId":  input.BookingId,
	}
	if input.Note != "" {
		entry["note"] = input.Note
	}
	if len(input.DocRefs) > 0 {
		refs := make([]any, 0, len(input.DocRefs))
		for _, r := range input.DocRefs {
			refs = append(refs, r)
		}
		entry["docRefs"] = refs
	}
	adjustments, _ := meta["adjustments"].([]any)
	meta["adjustments"] = append(adjustments, entry)
	payload["meta"] = meta
}
