package workflow

import (
	"fmt"
	"testing"
	"time"

	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

// fixedCodes makes order codes deterministic so tests can force unique-index
// collisions.
type fixedCodes struct {
	purchase string
	sales    string
	bookings int
}

func (f *fixedCodes) OrderCode(direction models.OrderDirection, itemCode string, at time.Time) string {
	if direction == models.OrderDirectionPurchase {
		return f.purchase
	}
	return f.sales
}

func (f *fixedCodes) BookingNumber(at time.Time) string {
	f.bookings++
	return fmt.Sprintf("BK-%03d", f.bookings)
}

func issueInput(dealRef string) *IssuePairedOrdersInput {
	return &IssuePairedOrdersInput{
		DealRef:       dealRef,
		ItemCode:      "PLT-01",
		ItemName:      "Pallet Move",
		Qty:           decimal.RequireFromString("10"),
		BuyUnitPrice:  decimal.RequireFromString("70"),
		SellUnitPrice: decimal.RequireFromString("75"),
		VendorCode:    "VND-9",
		CustomerCode:  "CST-4",
	}
}

func TestIssuePairedOrders_CreatesBothSides(t *testing.T) {
	gw := NewMemoryGateway()
	codes := &fixedCodes{purchase: "PO-PLT01-001", sales: "SO-PLT01-001"}

	res, err := IssuePairedOrders(testCtx(), gw, codes, nil, issueInput("D-100"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !res.Ok || res.PurchaseCode != "PO-PLT01-001" || res.SalesCode != "SO-PLT01-001" {
		t.Fatalf("unexpected result %+v", res)
	}

	orders := gw.Orders()
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	var purchase, sales *models.TradeOrder
	for i := range orders {
		switch orders[i].Direction {
		case models.OrderDirectionPurchase:
			purchase = &orders[i]
		case models.OrderDirectionSales:
			sales = &orders[i]
		}
	}
	if purchase == nil || sales == nil {
		t.Fatal("expected one PURCHASE and one SALES order")
	}
	if purchase.DealRef != "D-100" || sales.DealRef != "D-100" {
		t.Fatal("both orders must reference the deal")
	}
	if purchase.PartyCode != "VND-9" || sales.PartyCode != "CST-4" {
		t.Fatalf("party codes crossed: purchase=%s sales=%s", purchase.PartyCode, sales.PartyCode)
	}
	if !purchase.Qty.Equal(sales.Qty) {
		t.Fatal("both orders must carry the same qty")
	}
}

func TestIssuePairedOrders_CompactBooking(t *testing.T) {
	gw := NewMemoryGateway()
	codes := &fixedCodes{purchase: "PO-1", sales: "SO-1"}
	in := issueInput("D-200")
	in.Booking = &BookingRequest{
		Compact:        true,
		PickupLocation: "Jebel Ali",
		DropLocation:   "Dubai South",
		VehicleType:    "FLATBED",
	}

	res, err := IssuePairedOrders(testCtx(), gw, codes, nil, in)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(res.BookingIds) != 1 {
		t.Fatalf("compact mode must create exactly 1 booking, got %d", len(res.BookingIds))
	}

	bookings := gw.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("expected 1 committed booking, got %d", len(bookings))
	}
	b := bookings[0]
	if b.Leg != models.BookingLegCompact {
		t.Fatalf("expected COMPACT leg, got %s", b.Leg)
	}
	if b.OrderId != res.PurchaseOrderId {
		t.Fatal("the compact booking must hang off the purchase order")
	}
	if b.FromLocation != "Jebel Ali" || b.ToLocation != "Dubai South" {
		t.Fatalf("unexpected route %s -> %s", b.FromLocation, b.ToLocation)
	}
}

func TestIssuePairedOrders_TwoLegBooking(t *testing.T) {
	gw := NewMemoryGateway()
	codes := &fixedCodes{purchase: "PO-1", sales: "SO-1"}
	in := issueInput("D-300")
	in.Booking = &BookingRequest{
		PickupLocation: "Jebel Ali",
		DropLocation:   "Dubai South",
		Hub:            "DXB-HUB",
	}

	res, err := IssuePairedOrders(testCtx(), gw, codes, nil, in)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(res.BookingIds) != 2 {
		t.Fatalf("two-leg mode must create 2 bookings, got %d", len(res.BookingIds))
	}

	bookings := gw.Bookings()
	var inbound, outbound *models.TransportBooking
	for i := range bookings {
		switch bookings[i].Leg {
		case models.BookingLegInbound:
			inbound = &bookings[i]
		case models.BookingLegOutbound:
			outbound = &bookings[i]
		}
	}
	if inbound == nil || outbound == nil {
		t.Fatal("expected one INBOUND and one OUTBOUND booking")
	}
	if inbound.OrderId != res.PurchaseOrderId || outbound.OrderId != res.SalesOrderId {
		t.Fatal("inbound belongs to the purchase order, outbound to the sales order")
	}
	if inbound.ToLocation != "DXB-HUB" || outbound.FromLocation != "DXB-HUB" {
		t.Fatalf("both legs must meet at the hub: inbound->%s outbound<-%s", inbound.ToLocation, outbound.FromLocation)
	}
}

func TestIssuePairedOrders_AtomicRollbackOnDuplicateCode(t *testing.T) {
	gw := NewMemoryGateway()
	// Same code for both directions forces the second insert to collide.
	codes := &fixedCodes{purchase: "DUP-1", sales: "DUP-1"}

	if _, err := IssuePairedOrders(testCtx(), gw, codes, nil, issueInput("D-400")); err == nil {
		t.Fatal("expected the duplicate code to fail the transaction")
	}
	if got := len(gw.Orders()); got != 0 {
		t.Fatalf("rollback must leave no orders behind, found %d", got)
	}
	if got := len(gw.Bookings()); got != 0 {
		t.Fatalf("rollback must leave no bookings behind, found %d", got)
	}
}

func TestIssuePairedOrders_Validation(t *testing.T) {
	gw := NewMemoryGateway()

	in := issueInput("D-500")
	in.Qty = decimal.Zero
	if _, err := IssuePairedOrders(testCtx(), gw, nil, nil, in); !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error for zero qty, got %v", err)
	}

	in = issueInput("D-500")
	in.VendorCode = ""
	if _, err := IssuePairedOrders(testCtx(), gw, nil, nil, in); !utils.IsValidationError(err) {
		t.Fatalf("expected a validation error for a missing vendor, got %v", err)
	}
}
