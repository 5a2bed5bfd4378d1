package models

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Downstream OBARI records (Active, Invoicing) are demo-only: derived from an
// order at request time and held in process memory. This store is explicitly
// non-durable and single-process — a stub, not a concurrency-safe design.

type ActiveRecord struct {
	ID          string          `json:"id"`
	OrgId       string          `json:"org_id"`
	DealRef     string          `json:"deal_ref"`
	OrderCode   string          `json:"order_code"`
	Qty         decimal.Decimal `json:"qty"`
	ActivatedAt time.Time       `json:"activated_at"`
}

type InvoiceRecord struct {
	ID        string          `json:"id"`
	OrgId     string          `json:"org_id"`
	DealRef   string          `json:"deal_ref"`
	OrderCode string          `json:"order_code"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	IssuedAt  time.Time       `json:"issued_at"`
}

type ReportRecord struct {
	ID           string    `json:"id"`
	OrgId        string    `json:"org_id"`
	DealRef      string    `json:"deal_ref"`
	SnapshotHash string    `json:"snapshot_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type DemoStore struct {
	mu       sync.Mutex
	actives  []ActiveRecord
	invoices []InvoiceRecord
	reports  []ReportRecord
}

func NewDemoStore() *DemoStore { return &DemoStore{} }

// Demo is the process-wide demo store behind the /obari/demo endpoints.
var Demo = NewDemoStore()

func (s *DemoStore) AddActive(rec ActiveRecord) ActiveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = NewOpaqueId()
	rec.ActivatedAt = time.Now().UTC()
	s.actives = append(s.actives, rec)
	return rec
}

func (s *DemoStore) AddInvoice(rec InvoiceRecord) InvoiceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = NewOpaqueId()
	rec.IssuedAt = time.Now().UTC()
	s.invoices = append(s.invoices, rec)
	return rec
}

func (s *DemoStore) AddReport(rec ReportRecord) ReportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = NewOpaqueId()
	rec.CreatedAt = time.Now().UTC()
	s.reports = append(s.reports, rec)
	return rec
}

// Records returns copies of all demo records for an org.
func (s *DemoStore) Records(orgId string) ([]ActiveRecord, []InvoiceRecord, []ReportRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actives []ActiveRecord
	var invoices []InvoiceRecord
	var reports []ReportRecord
	for _, r := range s.actives {
		if r.OrgId == orgId {
			actives = append(actives, r)
		}
	}
	for _, r := range s.invoices {
		if r.OrgId == orgId {
			invoices = append(invoices, r)
		}
	}
	for _, r := range s.reports {
		if r.OrgId == orgId {
			reports = append(reports, r)
		}
	}
	return actives, invoices, reports
}
