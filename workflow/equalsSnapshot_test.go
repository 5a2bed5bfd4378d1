package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. MemoryGateway mirrors the
// write-once and rollback semantics of the gorm gateway; full DB integration
// tests need a MySQL instance.

func testCtx() context.Context {
	return utils.SetOrgIdInContext(context.Background(), "org-1")
}

func btdoFinalizeInput(dealId string) *FinalizeDealInput {
	return &FinalizeDealInput{
		DealId:   dealId,
		Number:   "BTDO-2024-0001",
		Stage:    models.FlowModeBTDO,
		Status:   models.DealStatusConfirmed,
		OrgId:    "org-1",
		Currency: "AED",
		SourceOfDemand: SourceOfDemand{
			Type:  models.DemandTypeRFQ,
			RefId: "RFQ-77",
		},
		Lines: []FinalizeLine{{
			Sku:       "PLT-01",
			ItemName:  "Pallet Move",
			Qty:       decimal.RequireFromString("1.5"),
			UnitPrice: decimal.RequireFromString("75"),
			TaxRate:   decimal.RequireFromString("0.05"),
		}},
		Totals: FinalizeTotals{
			Subtotal: decimal.RequireFromString("112.50"),
			TaxTotal: decimal.RequireFromString("5.63"),
			Total:    decimal.RequireFromString("118.13"),
		},
	}
}

func TestFinalizeEqualsSnapshot_WritesContentAddressedSnapshot(t *testing.T) {
	gw := NewMemoryGateway()
	res, err := FinalizeEqualsSnapshot(testCtx(), gw, nil, nil, models.FlowModeBTDO, btdoFinalizeInput("D-100"))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !res.Ok {
		t.Fatal("expected ok result")
	}
	if res.Version != models.EqualsSnapshotSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", models.EqualsSnapshotSchemaVersion, res.Version)
	}
	if len(res.Hash) != 64 || strings.Trim(res.Hash, "0123456789abcdef") != "" {
		t.Fatalf("hash is not 64 lowercase hex chars: %q", res.Hash)
	}
	if want := "D-100-" + res.Hash[:12] + ".json"; res.File != want {
		t.Fatalf("expected file %q, got %q", want, res.File)
	}
	if !strings.Contains(res.Payload, `"stage":"BTDO"`) {
		t.Fatalf("payload missing stage tag: %s", res.Payload)
	}
	// The wall clock must never leak into the hashed payload.
	if strings.Contains(res.Payload, res.At) {
		t.Fatalf("payload contains the finalize timestamp: %s", res.Payload)
	}
}

func TestFinalizeEqualsSnapshot_ResubmissionIsIdempotent(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := testCtx()

	first, err := FinalizeEqualsSnapshot(ctx, gw, nil, nil, models.FlowModeBTDO, btdoFinalizeInput("D-200"))
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	second, err := FinalizeEqualsSnapshot(ctx, gw, nil, nil, models.FlowModeBTDO, btdoFinalizeInput("D-200"))
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}

	if first.Hash != second.Hash {
		t.Fatalf("resubmission produced a different hash: %s vs %s", first.Hash, second.Hash)
	}
	snaps, err := gw.SnapshotsForDeal(ctx, "org-1", "D-200")
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected exactly 1 stored snapshot, got %d", len(snaps))
	}
}

func TestFinalizeEqualsSnapshot_DifferentContentDifferentHash(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := testCtx()

	a, err := FinalizeEqualsSnapshot(ctx, gw, nil, nil, models.FlowModeBTDO, btdoFinalizeInput("D-300"))
	if err != nil {
		t.Fatalf("finalize a: %v", err)
	}
	in := btdoFinalizeInput("D-300")
	in.Lines[0].Qty = decimal.RequireFromString("2")
	b, err := FinalizeEqualsSnapshot(ctx, gw, nil, nil, models.FlowModeBTDO, in)
	if err != nil {
		t.Fatalf("finalize b: %v", err)
	}

	if a.Hash == b.Hash {
		t.Fatal("different content must produce different hashes")
	}
	snaps, _ := gw.SnapshotsForDeal(ctx, "org-1", "D-300")
	if len(snaps) != 2 {
		t.Fatalf("expected 2 stored snapshots, got %d", len(snaps))
	}
}

func TestFinalizeEqualsSnapshot_StageMismatchRejected(t *testing.T) {
	gw := NewMemoryGateway()
	in := btdoFinalizeInput("D-400") // carries stage BTDO
	_, err := FinalizeEqualsSnapshot(testCtx(), gw, nil, nil, models.FlowModeBDO, in)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error for the wrong stage literal, got %v", err)
	}
}

func TestFinalizeEqualsSnapshot_RejectsNegativeTotals(t *testing.T) {
	gw := NewMemoryGateway()
	in := btdoFinalizeInput("D-500")
	in.Totals.Subtotal = decimal.RequireFromString("-1")
	_, err := FinalizeEqualsSnapshot(testCtx(), gw, nil, nil, models.FlowModeBTDO, in)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error for negative totals, got %v", err)
	}
}

func TestFinalizeEqualsSnapshot_RejectsEmptyLines(t *testing.T) {
	gw := NewMemoryGateway()
	in := btdoFinalizeInput("D-600")
	in.Lines = nil
	_, err := FinalizeEqualsSnapshot(testCtx(), gw, nil, nil, models.FlowModeBTDO, in)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error for missing lines, got %v", err)
	}
}
