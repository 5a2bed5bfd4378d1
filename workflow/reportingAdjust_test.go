package workflow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

// seedAdjustFixture creates one purchase order with a booking for dealRef and
// a BDO base snapshot with a single line qty 4 @ 10, no tax.
func seedAdjustFixture(t *testing.T, gw *MemoryGateway, dealRef string) (bookingId int, baseHash string) {
	t.Helper()
	ctx := testCtx()

	var booking models.TransportBooking
	err := gw.InTransaction(ctx, func(tx Tx) error {
		order := models.TradeOrder{
			OrgId:     "org-1",
			Code:      "PO-" + dealRef,
			Direction: models.OrderDirectionPurchase,
			DealRef:   dealRef,
			ItemCode:  "PLT-01",
			Qty:       decimal.RequireFromString("4"),
			UnitPrice: decimal.RequireFromString("10"),
			PartyCode: "VND-9",
		}
		if err := tx.CreateOrder(&order); err != nil {
			return err
		}
		booking = models.TransportBooking{
			OrgId:         "org-1",
			BookingNumber: "BK-" + dealRef,
			OrderId:       order.ID,
			Leg:           models.BookingLegCompact,
		}
		return tx.CreateBooking(&booking)
	})
	if err != nil {
		t.Fatalf("seed orders: %v", err)
	}

	in := &FinalizeDealInput{
		DealId:   dealRef,
		Number:   "BDO-" + dealRef,
		Stage:    models.FlowModeBDO,
		Status:   models.DealStatusConfirmed,
		OrgId:    "org-1",
		Currency: "AED",
		SourceOfDemand: SourceOfDemand{
			Type: models.DemandTypeAdHoc,
		},
		Lines: []FinalizeLine{{
			Sku:       "PLT-01",
			ItemName:  "Pallet Move",
			Qty:       decimal.RequireFromString("4"),
			UnitPrice: decimal.RequireFromString("10"),
			TaxRate:   decimal.Zero,
		}},
		Totals: FinalizeTotals{
			Subtotal: decimal.RequireFromString("40"),
			TaxTotal: decimal.Zero,
			Total:    decimal.RequireFromString("40"),
		},
	}
	res, err := FinalizeEqualsSnapshot(ctx, gw, nil, nil, models.FlowModeBDO, in)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	return booking.ID, res.Hash
}

func TestAdjustReport_ScalesQuantitiesAndRecomputesTotals(t *testing.T) {
	gw := NewMemoryGateway()
	bookingId, baseHash := seedAdjustFixture(t, gw, "D-700")

	res, err := AdjustReport(testCtx(), gw, nil, nil, &AdjustReportInput{
		BookingId:  bookingId,
		Multiplier: decimal.RequireFromString("0.5"),
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}

	if !res.Ok || res.DealId != "D-700" {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, want := range []string{`"qty":"2.000"`, `"subtotal":"20.00"`, `"taxTotal":"0.00"`, `"total":"20.00"`} {
		if !strings.Contains(res.Payload, want) {
			t.Fatalf("payload missing %s: %s", want, res.Payload)
		}
	}
	if res.BaseHash != baseHash {
		t.Fatalf("expected baseHash %s, got %s", baseHash, res.BaseHash)
	}
	if res.Version != models.EqualsSnapshotSchemaVersion+1 {
		t.Fatalf("expected version %d, got %d", models.EqualsSnapshotSchemaVersion+1, res.Version)
	}
	if res.Hash == baseHash {
		t.Fatal("an adjusted snapshot must have its own content address")
	}
}

func TestAdjustReport_AuditTrailInMeta(t *testing.T) {
	gw := NewMemoryGateway()
	bookingId, baseHash := seedAdjustFixture(t, gw, "D-710")

	res, err := AdjustReport(testCtx(), gw, nil, nil, &AdjustReportInput{
		BookingId:  bookingId,
		Multiplier: decimal.RequireFromString("2"),
		Note:       "weighbridge correction",
		DocRefs:    []string{"WB-123"},
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	payload, err := decodePayload(res.Payload)
	if err != nil {
		t.Fatalf("re-parse payload: %v", err)
	}
	meta, _ := payload["meta"].(map[string]any)
	adjustments, _ := meta["adjustments"].([]any)
	if len(adjustments) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(adjustments))
	}
	entry := adjustments[0].(map[string]any)
	if entry["baseHash"] != baseHash {
		t.Fatalf("audit entry baseHash = %v, want %s", entry["baseHash"], baseHash)
	}
	if entry["note"] != "weighbridge correction" {
		t.Fatalf("audit entry note = %v", entry["note"])
	}
}

func TestAdjustReport_ChainsOnLatestSnapshot(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := testCtx()
	bookingId, _ := seedAdjustFixture(t, gw, "D-720")

	first, err := AdjustReport(ctx, gw, nil, nil, &AdjustReportInput{
		BookingId:  bookingId,
		Multiplier: decimal.RequireFromString("2"),
	})
	if err != nil {
		t.Fatalf("first adjust: %v", err)
	}
	second, err := AdjustReport(ctx, gw, nil, nil, &AdjustReportInput{
		BookingId:  bookingId,
		Multiplier: decimal.RequireFromString("2"),
	})
	if err != nil {
		t.Fatalf("second adjust: %v", err)
	}

	// Each adjustment supersedes the previous latest snapshot.
	if second.BaseHash != first.Hash {
		t.Fatalf("second adjustment must chain on the first: base=%s want=%s", second.BaseHash, first.Hash)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("expected version %d, got %d", first.Version+1, second.Version)
	}
	if !strings.Contains(second.Payload, `"qty":"16.000"`) {
		t.Fatalf("expected 4 * 2 * 2 = 16.000, payload: %s", second.Payload)
	}
}

func TestAdjustReport_MultiplierValidation(t *testing.T) {
	gw := NewMemoryGateway()
	bookingId, _ := seedAdjustFixture(t, gw, "D-730")

	for _, m := range []string{"0", "-1"} {
		_, err := AdjustReport(testCtx(), gw, nil, nil, &AdjustReportInput{
			BookingId:  bookingId,
			Multiplier: decimal.RequireFromString(m),
		})
		if !utils.IsValidationError(err) {
			t.Fatalf("multiplier %s: expected a validation error, got %v", m, err)
		}
	}
}

func TestAdjustReport_MissingBooking(t *testing.T) {
	gw := NewMemoryGateway()
	_, err := AdjustReport(testCtx(), gw, nil, nil, &AdjustReportInput{
		BookingId:  999,
		Multiplier: decimal.RequireFromString("2"),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
}

func TestAdjustReport_MissingSnapshot(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := testCtx()

	var booking models.TransportBooking
	err := gw.InTransaction(ctx, func(tx Tx) error {
		order := models.TradeOrder{OrgId: "org-1", Code: "PO-1", Direction: models.OrderDirectionPurchase, DealRef: "D-740"}
		if err := tx.CreateOrder(&order); err != nil {
			return err
		}
		booking = models.TransportBooking{OrgId: "org-1", BookingNumber: "BK-1", OrderId: order.ID, Leg: models.BookingLegCompact}
		return tx.CreateBooking(&booking)
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = AdjustReport(ctx, gw, nil, nil, &AdjustReportInput{
		BookingId:  booking.ID,
		Multiplier: decimal.RequireFromString("2"),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected a not-found error for a deal without snapshots, got %v", err)
	}
}

func TestAdjustReport_CorruptPayload(t *testing.T) {
	gw := NewMemoryGateway()
	ctx := testCtx()
	bookingId, _ := seedAdjustFixture(t, gw, "D-750")

	// A hand-edited row that no longer parses should surface as corrupt
	// data, not as a panic or a generic failure.
	if _, err := gw.CreateSnapshotOnce(ctx, &models.EqualsSnapshot{
		OrgId:       "org-1",
		DealId:      "D-750",
		ContentHash: "deadbeef",
		Stage:       models.FlowModeBDO,
		Number:      "BDO-D-750",
		Version:     models.EqualsSnapshotSchemaVersion,
		Payload:     "{not json",
		File:        "D-750-deadbeef.json",
		At:          time.Now().UTC().Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	_, err := AdjustReport(ctx, gw, nil, nil, &AdjustReportInput{
		BookingId:  bookingId,
		Multiplier: decimal.RequireFromString("2"),
	})
	if !utils.IsCorruptDataError(err) {
		t.Fatalf("expected a corrupt-data error, got %v", err)
	}
}
