package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/models"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
)

// BookingRequest describes optional transport alongside order issuance.
// Compact requests yield one pickup-to-drop booking on the purchase order;
// otherwise two legs are created: inbound vendor-to-hub on the purchase
// order and outbound hub-to-customer on the sales order.
type BookingRequest struct {
	Compact        bool       `json:"compact"`
	PickupLocation string     `json:"pickupLocation"`
	DropLocation   string     `json:"dropLocation"`
	Hub            string     `json:"hub"`
	VehicleType    string     `json:"vehicleType"`
	Date           *time.Time `json:"date"`
}

type IssuePairedOrdersInput struct {
	DealRef       string          `json:"dealRef" validate:"required"`
	ItemCode      string          `json:"itemCode" validate:"required"`
	ItemName      string          `json:"itemName"`
	Qty           decimal.Decimal `json:"qty"`
	BuyUnitPrice  decimal.Decimal `json:"buyUnitPrice"`
	SellUnitPrice decimal.Decimal `json:"sellUnitPrice"`
	VendorCode    string          `json:"vendorCode" validate:"required"`
	CustomerCode  string          `json:"customerCode" validate:"required"`
	Booking       *BookingRequest `json:"booking"`
}

type IssuePairedOrdersResult struct {
	Ok              bool   `json:"ok"`
	DealRef         string `json:"dealRef"`
	PurchaseOrderId int    `json:"purchaseOrderId"`
	PurchaseCode    string `json:"purchaseCode"`
	SalesOrderId    int    `json:"salesOrderId"`
	SalesCode       string `json:"salesCode"`
	BookingIds      []int  `json:"bookingIds"`
}

func (input *IssuePairedOrdersInput) validate() error {
	if err := utils.Validate().Struct(input); err != nil {
		return utils.NewValidationError("invalid issue request: %s", err.Error())
	}
	if input.Qty.Sign() <= 0 {
		return utils.NewValidationError("qty must be positive")
	}
	if input.BuyUnitPrice.Sign() < 0 {
		return utils.NewValidationError("buyUnitPrice must not be negative")
	}
	if input.SellUnitPrice.Sign() < 0 {
		return utils.NewValidationError("sellUnitPrice must not be negative")
	}
	return nil
}

// IssuePairedOrders creates the PURCHASE and SALES orders for one deal, plus
// any requested transport bookings, inside a single transaction. Both orders
// (and bookings) succeed or none do; on failure the whole operation rolls
// back and no partial state is ever visible.
func IssuePairedOrders(ctx context.Context, gw Gateway, codes models.CodeGenerator, notify Notifier, input *IssuePairedOrdersInput) (*IssuePairedOrdersResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	orgId, _ := utils.GetOrgIdFromContext(ctx)
	if codes == nil {
		codes = models.DefaultCodeGenerator()
	}

	// Best-effort per-deal lock to reduce duplicate-code contention under
	// concurrent submissions. Correctness comes from the DB transaction and
	// the unique code index, not from this lock.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "obari:issue:"+input.DealRef, 10*time.Second, nil)
		if err == nil {
			defer lock.Release(ctx)
		} else if err != redislock.ErrNotObtained {
			config.LogError(config.GetLogger(), "pairedOrder.go", "IssuePairedOrders", "Obtain lock", input.DealRef, err)
		}
	}

	now := time.Now().UTC()
	purchase := models.TradeOrder{
		OrgId:     orgId,
		Code:      codes.OrderCode(models.OrderDirectionPurchase, input.ItemCode, now),
		Direction: models.OrderDirectionPurchase,
		DealRef:   input.DealRef,
		ItemCode:  input.ItemCode,
		ItemName:  input.ItemName,
		Qty:       input.Qty,
		UnitPrice: input.BuyUnitPrice,
		PartyCode: input.VendorCode,
		Notes:     fmt.Sprintf("Issued from deal %s (purchase side)", input.DealRef),
	}
	sales := models.TradeOrder{
		OrgId:     orgId,
		Code:      codes.OrderCode(models.OrderDirectionSales, input.ItemCode, now),
		Direction: models.OrderDirectionSales,
		DealRef:   input.DealRef,
		ItemCode:  input.ItemCode,
		ItemName:  input.ItemName,
		Qty:       input.Qty,
		UnitPrice: input.SellUnitPrice,
		PartyCode: input.CustomerCode,
		Notes:     fmt.Sprintf("Issued from deal %s (sales side)", input.DealRef),
	}

	var bookingIds []int
	err := gw.InTransaction(ctx, func(tx Tx) error {
		if err := tx.CreateOrder(&purchase); err != nil {
			return err
		}
		if err := tx.CreateOrder(&sales); err != nil {
			return err
		}
		if input.Booking == nil {
			return nil
		}

		req := input.Booking
		if req.Compact {
			booking := models.TransportBooking{
				OrgId:         orgId,
				BookingNumber: codes.BookingNumber(now),
				OrderId:       purchase.ID,
				Leg:           models.BookingLegCompact,
				FromLocation:  firstNonEmpty(req.PickupLocation, input.VendorCode),
				ToLocation:    firstNonEmpty(req.DropLocation, input.CustomerCode),
				VehicleType:   req.VehicleType,
				ScheduledDate: req.Date,
			}
			if err := tx.CreateBooking(&booking); err != nil {
				return err
			}
			bookingIds = append(bookingIds, booking.ID)
			return nil
		}

		hub := firstNonEmpty(req.Hub, "HUB")
		inbound := models.TransportBooking{
			OrgId:         orgId,
			BookingNumber: codes.BookingNumber(now),
			OrderId:       purchase.ID,
			Leg:           models.BookingLegInbound,
			FromLocation:  firstNonEmpty(req.PickupLocation, input.VendorCode),
			ToLocation:    hub,
			VehicleType:   req.VehicleType,
			ScheduledDate: req.Date,
		}
		if err := tx.CreateBooking(&inbound); err != nil {
			return err
		}
		outbound := models.TransportBooking{
			OrgId:         orgId,
			BookingNumber: codes.BookingNumber(now),
			OrderId:       sales.ID,
			Leg:           models.BookingLegOutbound,
			FromLocation:  hub,
			ToLocation:    firstNonEmpty(req.DropLocation, input.CustomerCode),
			VehicleType:   req.VehicleType,
			ScheduledDate: req.Date,
		}
		if err := tx.CreateBooking(&outbound); err != nil {
			return err
		}
		bookingIds = append(bookingIds, inbound.ID, outbound.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notify != nil {
		notify.Notify(ctx, stampEvent(ctx, Event{
			Type:   EventOrdersIssued,
			OrgId:  orgId,
			DealId: input.DealRef,
			Data: map[string]any{
				"purchaseCode":   purchase.Code,
				"purchaseAmount": purchase.Amount().StringFixed(2),
				"salesCode":      sales.Code,
				"salesAmount":    sales.Amount().StringFixed(2),
				"bookings":       len(bookingIds),
			},
		}))
	}

	return &IssuePairedOrdersResult{
		Ok:              true,
		DealRef:         input.DealRef,
		PurchaseOrderId: purchase.ID,
		PurchaseCode:    purchase.Code,
		SalesOrderId:    sales.ID,
		SalesCode:       sales.Code,
		BookingIds:      bookingIds,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
