package workflow

import (
	"github.com/coraeos/obari_backend/models"
)

// The stage transition law is a pure, table-driven guard: same inputs always
// produce the same verdict, no hidden state. Two parallel tracks exist —
// BDO for straightforward deals and BTDO for elevated ones.

var (
	bdoSequence = []models.Stage{
		models.StageBook,
		models.StageDeal,
		models.StageOrder,
		models.StageDone,
	}
	btdoSequence = []models.Stage{
		models.StageBook,
		models.StageTradeOpen,
		models.StageTradeLocked,
		models.StageDeal,
		models.StageOrder,
		models.StageDone,
	}
)

type TransitionCode string

const (
	TransitionInvalid          TransitionCode = "INVALID_TRANSITION"
	TransitionLockedStage      TransitionCode = "LOCKED_STAGE"
	TransitionMissingPricelock TransitionCode = "MISSING_PRICELOCK"
	TransitionMissingDeal      TransitionCode = "MISSING_DEAL"
)

type TransitionInput struct {
	Flow         models.FlowMode `json:"flowMode"`
	From         models.Stage    `json:"from"`
	To           models.Stage    `json:"to"`
	HasPricelock bool            `json:"hasPricelock"`
	HasDeal      bool            `json:"hasDeal"`
	Locked       bool            `json:"locked"`
}

// TransitionDecision carries both a machine code and the human reason; HTTP
// responses surface the reason.
type TransitionDecision struct {
	OK     bool           `json:"ok"`
	Code   TransitionCode `json:"code,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

func reject(code TransitionCode, reason string) TransitionDecision {
	return TransitionDecision{OK: false, Code: code, Reason: reason}
}

// StageSequence returns the ordered stage list for a flow, or nil for an
// unknown flow mode.
func StageSequence(flow models.FlowMode) []models.Stage {
	switch flow {
	case models.FlowModeBDO:
		return bdoSequence
	case models.FlowModeBTDO:
		return btdoSequence
	}
	return nil
}

func stageIndex(seq []models.Stage, s models.Stage) int {
	for i, st := range seq {
		if st == s {
			return i
		}
	}
	return -1
}

// CanTransition validates a stage move. It is total: every input yields a
// decision, never a panic.
func CanTransition(in TransitionInput) TransitionDecision {
	seq := StageSequence(in.Flow)
	if seq == nil {
		return reject(TransitionInvalid, "Unknown flow mode.")
	}

	// DONE is terminal in both flows.
	if in.From == models.StageDone {
		return reject(TransitionInvalid, "Stage DONE is terminal; no further transitions.")
	}

	fromIdx := stageIndex(seq, in.From)
	toIdx := stageIndex(seq, in.To)
	if fromIdx < 0 || toIdx < 0 {
		return reject(TransitionInvalid, "Stage is not part of this flow.")
	}

	// Backward moves: only the lock guards them.
	if toIdx < fromIdx {
		if in.Locked {
			return reject(TransitionLockedStage, "Stage is locked; backward moves are not allowed.")
		}
		return TransitionDecision{OK: true}
	}

	// BTDO gate: leaving TRADE_OPEN forward requires a pricelock.
	if in.Flow == models.FlowModeBTDO && in.From == models.StageTradeOpen && toIdx > fromIdx && !in.HasPricelock {
		return reject(TransitionMissingPricelock, "Pricelock is required to advance.")
	}

	// Entering ORDER from any stage requires a confirmed deal.
	if in.To == models.StageOrder && !in.HasDeal {
		return reject(TransitionMissingDeal, "A confirmed deal is required to enter ORDER.")
	}

	return TransitionDecision{OK: true}
}

// StatusFor maps a stage to the deal status it implies.
func StatusFor(stage models.Stage) models.DealStatus {
	switch stage {
	case models.StageBook:
		return models.DealStatusDraft
	case models.StageTradeOpen:
		return models.DealStatusProposed
	case models.StageTradeLocked:
		return models.DealStatusApproved
	default:
		return models.DealStatusConfirmed
	}
}

// NextStage returns the stage after s in the flow, and false at DONE or when
// s is not part of the flow.
func NextStage(flow models.FlowMode, s models.Stage) (models.Stage, bool) {
	seq := StageSequence(flow)
	idx := stageIndex(seq, s)
	if idx < 0 || idx+1 >= len(seq) {
		return "", false
	}
	return seq[idx+1], true
}
