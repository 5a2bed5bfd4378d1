package models

import (
	"time"
)

// EqualsSnapshotSchemaVersion is bumped whenever the snapshot payload layout
// changes. Revision 2 switched all monetary/quantity fields to decimal
// strings so hashes stay stable across runtimes.
const EqualsSnapshotSchemaVersion = 2

// EqualsSnapshot is an immutable, content-addressed record of a deal's state
// at a given stage. Unique constraint: (org_id, deal_id, content_hash) — a
// duplicate write is treated as success by the gateway, never as an error,
// so a snapshot is never overwritten and finalize is safely retryable.
//
// Later snapshots supersede earlier ones via BaseHash; no row is ever
// mutated after creation.
type EqualsSnapshot struct {
	ID           int       `gorm:"primary_key" json:"id"`
	OrgId        string    `gorm:"size:64;not null;index:uniq_snapshot,unique" json:"org_id"`
	DealId       string    `gorm:"size:64;not null;index:uniq_snapshot,unique" json:"deal_id"`
	ContentHash  string    `gorm:"size:64;not null;index:uniq_snapshot,unique" json:"content_hash"`
	Stage        FlowMode  `gorm:"size:10;not null;index" json:"stage"`
	Number       string    `gorm:"size:100;not null" json:"number"`
	CurrencyCode string    `gorm:"size:10;not null" json:"currency_code"`
	Version      int       `gorm:"not null" json:"version"`
	BaseHash     *string   `gorm:"size:64;default:null" json:"base_hash"`
	Payload      string    `gorm:"type:longtext;not null" json:"payload"`
	File         string    `gorm:"size:255;not null" json:"file"`
	At           time.Time `gorm:"not null;index" json:"at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
