package models

import (
	"context"
	"errors"
	"time"

	"github.com/coraeos/obari_backend/config"
	"github.com/coraeos/obari_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deal is the durable record of a commercial deal moving through the
// BDO/BTDO stage sequence. Totals are always recomputed server-side from the
// line items; clients never set them directly.
type Deal struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrgId          string          `gorm:"size:64;not null;index:uniq_deal,unique" json:"org_id"`
	DealId         string          `gorm:"size:64;not null;index:uniq_deal,unique" json:"deal_id" binding:"required"`
	Number         string          `gorm:"size:100;not null" json:"number" binding:"required"`
	FlowMode       FlowMode        `gorm:"size:10;not null" json:"flow_mode" binding:"required"`
	Stage          Stage           `gorm:"size:20;not null" json:"stage"`
	Status         DealStatus      `gorm:"size:20;not null" json:"status"`
	CurrencyCode   string          `gorm:"size:10;not null" json:"currency_code" binding:"required"`
	CustomerId     string          `gorm:"size:64;default:null" json:"customer_id"`
	VendorId       string          `gorm:"size:64;default:null" json:"vendor_id"`
	LocationId     string          `gorm:"size:64;default:null" json:"location_id"`
	SourceType     DemandType      `gorm:"size:20;not null" json:"source_type"`
	SourceRefId    string          `gorm:"size:64;default:null" json:"source_ref_id"`
	Locked         *bool           `gorm:"not null;default:false" json:"locked"`
	PricelockUntil *time.Time      `gorm:"default:null" json:"pricelock_until"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TaxTotal       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_total"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	LineItems      []DealLineItem  `gorm:"foreignKey:DealRowId" json:"line_items"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type DealLineItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	DealRowId int             `gorm:"index;not null" json:"deal_row_id"`
	Sku       string          `gorm:"size:100;default:null" json:"sku"`
	ItemName  string          `gorm:"size:255;not null" json:"item_name" binding:"required"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(10,6);default:0" json:"tax_rate"`
}

type NewDeal struct {
	DealId       string           `json:"dealId" binding:"required" validate:"required"`
	Number       string           `json:"number" binding:"required" validate:"required"`
	FlowMode     FlowMode         `json:"flowMode" binding:"required" validate:"required,flowmode"`
	CurrencyCode string           `json:"currency" binding:"required" validate:"required"`
	CustomerId   string           `json:"customerId" validate:"-"`
	VendorId     string           `json:"vendorId" validate:"-"`
	LocationId   string           `json:"locationId" validate:"-"`
	SourceType   DemandType       `json:"sourceType" binding:"required" validate:"required,demandtype"`
	SourceRefId  string           `json:"sourceRefId" validate:"-"`
	Lines        []NewDealLine    `json:"lines" binding:"required" validate:"required,min=1,dive"`
}

type NewDealLine struct {
	Sku       string          `json:"sku"`
	ItemName  string          `json:"itemName" binding:"required" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
}

func (input *NewDeal) validate(ctx context.Context, orgId string) error {
	if err := utils.Validate().StructCtx(ctx, input); err != nil {
		return utils.NewValidationError("invalid deal: %s", err.Error())
	}
	for _, line := range input.Lines {
		if line.Qty.Sign() <= 0 {
			return utils.NewValidationError("line %q: qty must be positive", line.ItemName)
		}
		if line.UnitPrice.Sign() < 0 {
			return utils.NewValidationError("line %q: unitPrice must not be negative", line.ItemName)
		}
		if line.TaxRate.Sign() < 0 {
			return utils.NewValidationError("line %q: taxRate must not be negative", line.ItemName)
		}
	}
	var count int64
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Deal{}).
		Where("org_id = ? AND deal_id = ?", orgId, input.DealId).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("deal %q already exists", input.DealId)
	}
	return nil
}

// ComputeDealTotals returns (subtotal, taxTotal, total) over the lines.
func ComputeDealTotals(lines []NewDealLine) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	subtotal := decimal.Zero
	taxTotal := decimal.Zero
	for _, line := range lines {
		lineAmount := line.Qty.Mul(line.UnitPrice)
		subtotal = subtotal.Add(lineAmount)
		taxTotal = taxTotal.Add(lineAmount.Mul(line.TaxRate))
	}
	return subtotal, taxTotal, subtotal.Add(taxTotal)
}

// CreateDeal performs deal intake. Every deal starts at BOOK in draft status;
// the stage law owns all later movement.
func CreateDeal(ctx context.Context, input *NewDeal) (*Deal, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if err := input.validate(ctx, orgId); err != nil {
		return nil, err
	}

	lines := make([]DealLineItem, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, DealLineItem{
			Sku:       l.Sku,
			ItemName:  l.ItemName,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
		})
	}
	subtotal, taxTotal, total := ComputeDealTotals(input.Lines)

	locked := false
	deal := Deal{
		OrgId:        orgId,
		DealId:       input.DealId,
		Number:       input.Number,
		FlowMode:     input.FlowMode,
		Stage:        StageBook,
		Status:       DealStatusDraft,
		CurrencyCode: input.CurrencyCode,
		CustomerId:   input.CustomerId,
		VendorId:     input.VendorId,
		LocationId:   input.LocationId,
		SourceType:   input.SourceType,
		SourceRefId:  input.SourceRefId,
		Locked:       &locked,
		Subtotal:     subtotal,
		TaxTotal:     taxTotal,
		Total:        total,
		LineItems:    lines,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&deal).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

// FindDealByDealId loads a deal (with lines) by its human deal id.
func FindDealByDealId(ctx context.Context, orgId string, dealId string) (*Deal, error) {
	var deal Deal
	db := config.GetDB()
	err := db.WithContext(ctx).
		Preload("LineItems").
		Where("org_id = ? AND deal_id = ?", orgId, dealId).
		First(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// HasPricelock reports whether the deal carries an unexpired pricelock.
func (d *Deal) HasPricelock(now time.Time) bool {
	return d.PricelockUntil != nil && d.PricelockUntil.After(now)
}

func (d *Deal) IsLocked() bool {
	return d.Locked != nil && *d.Locked
}

// SetPricelock stamps a time-bounded price commitment on the deal.
func SetPricelock(ctx context.Context, orgId string, dealId string, until time.Time) (*Deal, error) {
	deal, err := FindDealByDealId(ctx, orgId, dealId)
	if err != nil {
		return nil, err
	}
	if until.Before(time.Now()) {
		return nil, utils.NewValidationError("pricelock expiry must be in the future")
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Deal{}).
		Where("id = ?", deal.ID).
		Update("pricelock_until", until).Error; err != nil {
		return nil, err
	}
	deal.PricelockUntil = &until
	return deal, nil
}

// ClearPricelock removes any pricelock from the deal.
func ClearPricelock(ctx context.Context, orgId string, dealId string) (*Deal, error) {
	deal, err := FindDealByDealId(ctx, orgId, dealId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Deal{}).
		Where("id = ?", deal.ID).
		Update("pricelock_until", nil).Error; err != nil {
		return nil, err
	}
	deal.PricelockUntil = nil
	return deal, nil
}

// LockDeal freezes the deal at its current stage; backward moves are rejected
// by the stage law while locked.
func LockDeal(ctx context.Context, orgId string, dealId string, locked bool) (*Deal, error) {
	deal, err := FindDealByDealId(ctx, orgId, dealId)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Deal{}).
		Where("id = ?", deal.ID).
		Update("locked", locked).Error; err != nil {
		return nil, err
	}
	deal.Locked = &locked
	return deal, nil
}
