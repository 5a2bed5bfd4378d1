package workflow

import (
	"testing"

	"github.com/coraeos/obari_backend/models"
)

func TestCanTransition_Total(t *testing.T) {
	// Every combination must yield a decision, never a panic, and every
	// rejection must carry a machine code.
	flows := []models.FlowMode{models.FlowModeBDO, models.FlowModeBTDO, "XYZ", ""}
	stages := []models.Stage{
		models.StageBook, models.StageTradeOpen, models.StageTradeLocked,
		models.StageDeal, models.StageOrder, models.StageDone, "BOGUS", "",
	}
	bools := []bool{false, true}

	for _, flow := range flows {
		for _, from := range stages {
			for _, to := range stages {
				for _, pl := range bools {
					for _, hd := range bools {
						for _, locked := range bools {
							d := CanTransition(TransitionInput{
								Flow: flow, From: from, To: to,
								HasPricelock: pl, HasDeal: hd, Locked: locked,
							})
							if !d.OK && d.Code == "" {
								t.Fatalf("rejection without code: flow=%s from=%s to=%s", flow, from, to)
							}
							if d.OK && (d.Code != "" || d.Reason != "") {
								t.Fatalf("acceptance with code/reason: flow=%s from=%s to=%s", flow, from, to)
							}
						}
					}
				}
			}
		}
	}
}

func TestCanTransition_DoneIsTerminal(t *testing.T) {
	for _, flow := range []models.FlowMode{models.FlowModeBDO, models.FlowModeBTDO} {
		d := CanTransition(TransitionInput{
			Flow: flow, From: models.StageDone, To: models.StageBook,
			HasPricelock: true, HasDeal: true,
		})
		if d.OK || d.Code != TransitionInvalid {
			t.Fatalf("flow=%s: expected INVALID_TRANSITION out of DONE, got %+v", flow, d)
		}
	}
}

func TestCanTransition_BDORejectsTradeStages(t *testing.T) {
	d := CanTransition(TransitionInput{
		Flow: models.FlowModeBDO, From: models.StageBook, To: models.StageTradeOpen,
	})
	if d.OK || d.Code != TransitionInvalid {
		t.Fatalf("expected INVALID_TRANSITION for TRADE_OPEN in BDO, got %+v", d)
	}
}

func TestCanTransition_BTDOPricelockGate(t *testing.T) {
	d := CanTransition(TransitionInput{
		Flow: models.FlowModeBTDO,
		From: models.StageTradeOpen,
		To:   models.StageTradeLocked,
	})
	if d.OK || d.Code != TransitionMissingPricelock {
		t.Fatalf("expected MISSING_PRICELOCK, got %+v", d)
	}
	if d.Reason != "Pricelock is required to advance." {
		t.Fatalf("unexpected reason %q", d.Reason)
	}

	d = CanTransition(TransitionInput{
		Flow:         models.FlowModeBTDO,
		From:         models.StageTradeOpen,
		To:           models.StageTradeLocked,
		HasPricelock: true,
	})
	if !d.OK {
		t.Fatalf("expected OK with pricelock, got %+v", d)
	}
}

func TestCanTransition_OrderRequiresDeal(t *testing.T) {
	// The MISSING_DEAL gate guards ORDER entry in both flows regardless of
	// the other flags.
	for _, flow := range []models.FlowMode{models.FlowModeBDO, models.FlowModeBTDO} {
		d := CanTransition(TransitionInput{
			Flow: flow, From: models.StageDeal, To: models.StageOrder,
			HasPricelock: true,
		})
		if d.OK || d.Code != TransitionMissingDeal {
			t.Fatalf("flow=%s: expected MISSING_DEAL, got %+v", flow, d)
		}

		d = CanTransition(TransitionInput{
			Flow: flow, From: models.StageDeal, To: models.StageOrder,
			HasPricelock: true, HasDeal: true,
		})
		if !d.OK {
			t.Fatalf("flow=%s: expected OK with a confirmed deal, got %+v", flow, d)
		}
	}
}

func TestCanTransition_BackwardMoves(t *testing.T) {
	d := CanTransition(TransitionInput{
		Flow: models.FlowModeBTDO, From: models.StageDeal, To: models.StageTradeOpen,
		Locked: true,
	})
	if d.OK || d.Code != TransitionLockedStage {
		t.Fatalf("expected LOCKED_STAGE on a locked backward move, got %+v", d)
	}

	d = CanTransition(TransitionInput{
		Flow: models.FlowModeBTDO, From: models.StageDeal, To: models.StageTradeOpen,
	})
	if !d.OK {
		t.Fatalf("expected unlocked backward move to be allowed, got %+v", d)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[models.Stage]models.DealStatus{
		models.StageBook:        models.DealStatusDraft,
		models.StageTradeOpen:   models.DealStatusProposed,
		models.StageTradeLocked: models.DealStatusApproved,
		models.StageDeal:        models.DealStatusConfirmed,
		models.StageOrder:       models.DealStatusConfirmed,
		models.StageDone:        models.DealStatusConfirmed,
	}
	for stage, want := range cases {
		if got := StatusFor(stage); got != want {
			t.Fatalf("StatusFor(%s) = %s, want %s", stage, got, want)
		}
	}
}

func TestNextStage(t *testing.T) {
	next, ok := NextStage(models.FlowModeBDO, models.StageBook)
	if !ok || next != models.StageDeal {
		t.Fatalf("BDO BOOK should advance to DEAL, got %s ok=%v", next, ok)
	}
	next, ok = NextStage(models.FlowModeBTDO, models.StageBook)
	if !ok || next != models.StageTradeOpen {
		t.Fatalf("BTDO BOOK should advance to TRADE_OPEN, got %s ok=%v", next, ok)
	}
	if _, ok := NextStage(models.FlowModeBDO, models.StageDone); ok {
		t.Fatal("DONE must have no next stage")
	}
	if _, ok := NextStage(models.FlowModeBDO, "BOGUS"); ok {
		t.Fatal("unknown stage must have no next stage")
	}
}
