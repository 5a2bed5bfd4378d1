package models

import (
	"github.com/coraeos/obari_backend/utils"
	"github.com/go-playground/validator/v10"
)

// FlowMode selects the deal track: BDO (Book-Deal-Order) for straightforward
// deals, BTDO (Book-Trade-Deal-Order) for elevated ones. Snapshot stage tags
// carry the same literals.
type FlowMode string

const (
	FlowModeBDO  FlowMode = "BDO"
	FlowModeBTDO FlowMode = "BTDO"
)

func (f FlowMode) IsValid() bool {
	return f == FlowModeBDO || f == FlowModeBTDO
}

// Stage is a position inside a flow's state sequence.
type Stage string

const (
	StageBook        Stage = "BOOK"
	StageTradeOpen   Stage = "TRADE_OPEN"
	StageTradeLocked Stage = "TRADE_LOCKED"
	StageDeal        Stage = "DEAL"
	StageOrder       Stage = "ORDER"
	StageDone        Stage = "DONE"
)

func (s Stage) IsValid() bool {
	switch s {
	case StageBook, StageTradeOpen, StageTradeLocked, StageDeal, StageOrder, StageDone:
		return true
	}
	return false
}

type DealStatus string

const (
	DealStatusDraft     DealStatus = "draft"
	DealStatusProposed  DealStatus = "proposed"
	DealStatusApproved  DealStatus = "approved"
	DealStatusConfirmed DealStatus = "confirmed"
)

func (s DealStatus) IsValid() bool {
	switch s {
	case DealStatusDraft, DealStatusProposed, DealStatusApproved, DealStatusConfirmed:
		return true
	}
	return false
}

// DemandType classifies a deal's source of demand.
type DemandType string

const (
	DemandTypeAdHoc     DemandType = "AD_HOC"
	DemandTypeRFQ       DemandType = "RFQ"
	DemandTypeContract  DemandType = "CONTRACT"
	DemandTypeRecurring DemandType = "RECURRING"
)

func (d DemandType) IsValid() bool {
	switch d {
	case DemandTypeAdHoc, DemandTypeRFQ, DemandTypeContract, DemandTypeRecurring:
		return true
	}
	return false
}

type OrderDirection string

const (
	OrderDirectionPurchase OrderDirection = "PURCHASE"
	OrderDirectionSales    OrderDirection = "SALES"
)

func (d OrderDirection) IsValid() bool {
	return d == OrderDirectionPurchase || d == OrderDirectionSales
}

// BookingLeg distinguishes a single compact booking from the two-leg
// vendor-to-hub / hub-to-customer split.
type BookingLeg string

const (
	BookingLegCompact  BookingLeg = "COMPACT"
	BookingLegInbound  BookingLeg = "INBOUND"
	BookingLegOutbound BookingLeg = "OUTBOUND"
)

func (l BookingLeg) IsValid() bool {
	switch l {
	case BookingLegCompact, BookingLegInbound, BookingLegOutbound:
		return true
	}
	return false
}

func init() {
	v := utils.Validate()
	v.RegisterValidation("flowmode", func(fl validator.FieldLevel) bool {
		return FlowMode(fl.Field().String()).IsValid()
	})
	v.RegisterValidation("stage", func(fl validator.FieldLevel) bool {
		return Stage(fl.Field().String()).IsValid()
	})
	v.RegisterValidation("dealstatus", func(fl validator.FieldLevel) bool {
		return DealStatus(fl.Field().String()).IsValid()
	})
	v.RegisterValidation("demandtype", func(fl validator.FieldLevel) bool {
		return DemandType(fl.Field().String()).IsValid()
	})
}
