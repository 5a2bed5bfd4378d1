package models

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator produces the human-readable document codes used on orders and
// bookings. Uniqueness must have negligible collision probability; the
// database unique index is the final arbiter.
type CodeGenerator interface {
	OrderCode(direction OrderDirection, itemCode string, at time.Time) string
	BookingNumber(at time.Time) string
}

type randomCodeGenerator struct{}

// DefaultCodeGenerator returns the production code generator, emitting codes
// like PO-CEMENT-260828-X4TQ / SO-CEMENT-260828-9KDM.
func DefaultCodeGenerator() CodeGenerator { return randomCodeGenerator{} }

func (randomCodeGenerator) OrderCode(direction OrderDirection, itemCode string, at time.Time) string {
	prefix := "PO"
	if direction == OrderDirectionSales {
		prefix = "SO"
	}
	return fmt.Sprintf("%s-%s-%s-%s", prefix, normalizeItemCode(itemCode), at.Format("060102"), randSuffix(4))
}

func (randomCodeGenerator) BookingNumber(at time.Time) string {
	return fmt.Sprintf("BK-%s-%s", at.Format("060102"), randSuffix(6))
}

func normalizeItemCode(itemCode string) string {
	itemCode = strings.ToUpper(strings.TrimSpace(itemCode))
	var b strings.Builder
	for _, r := range itemCode {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "ITEM"
	}
	return b.String()
}

// Unambiguous uppercase alphabet (no O/0, I/1 confusion pairs kept apart).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unheard of; fall back to uuid
		// entropy rather than aborting code generation.
		id := uuid.NewString()
		for i := 0; i < n; i++ {
			buf[i] = id[i]
		}
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}

// NewOpaqueId returns an opaque unique identifier for non-document records.
func NewOpaqueId() string {
	return uuid.NewString()
}
