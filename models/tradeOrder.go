package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeOrder is one side of a paired order. The PURCHASE side faces the
// vendor at the buy price, the SALES side faces the customer at the sell
// price; both reference the same deal and are only ever created together
// inside one transaction.
type TradeOrder struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrgId     string          `gorm:"size:64;not null;index" json:"org_id"`
	Code      string          `gorm:"size:100;not null;index:uniq_order_code,unique" json:"code"`
	Direction OrderDirection  `gorm:"size:10;not null" json:"direction"`
	DealRef   string          `gorm:"size:64;not null;index" json:"deal_ref"`
	ItemCode  string          `gorm:"size:100;not null" json:"item_code"`
	ItemName  string          `gorm:"size:255;default:null" json:"item_name"`
	Qty       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	PartyCode string          `gorm:"size:64;not null" json:"party_code"`
	Notes     string          `gorm:"type:text;default:null" json:"notes"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Amount is qty x unit price for this side.
func (o *TradeOrder) Amount() decimal.Decimal {
	return o.Qty.Mul(o.UnitPrice)
}
