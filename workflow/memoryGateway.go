package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/coraeos/obari_backend/models"
)

// MemoryGateway is an in-process Gateway for demo/staging endpoints and
// tests. It is explicitly non-durable and single-process; it mirrors the
// transactional semantics of the real gateway (staged writes are discarded
// on error) without being a concurrency-safe production design.
type MemoryGateway struct {
	mu        sync.Mutex
	snapshots []models.EqualsSnapshot
	orders    []models.TradeOrder
	bookings  []models.TransportBooking
	nextID    int
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{nextID: 1}
}

func (g *MemoryGateway) CreateSnapshotOnce(ctx context.Context, snap *models.EqualsSnapshot) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.snapshots {
		if s.OrgId == snap.OrgId && s.DealId == snap.DealId && s.ContentHash == snap.ContentHash {
			snap.ID = s.ID
			return false, nil
		}
	}
	snap.ID = g.nextID
	g.nextID++
	g.snapshots = append(g.snapshots, *snap)
	return true, nil
}

func (g *MemoryGateway) LatestSnapshot(ctx context.Context, orgId string, dealId string, stage models.FlowMode) (*models.EqualsSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var candidates []models.EqualsSnapshot
	for _, s := range g.snapshots {
		if s.OrgId == orgId && s.DealId == dealId && s.Stage == stage {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].At.Equal(candidates[j].At) {
			return candidates[i].At.After(candidates[j].At)
		}
		return candidates[i].ID > candidates[j].ID
	})
	out := candidates[0]
	return &out, nil
}

func (g *MemoryGateway) SnapshotsForDeal(ctx context.Context, orgId string, dealId string) ([]models.EqualsSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []models.EqualsSnapshot
	for _, s := range g.snapshots {
		if s.OrgId == orgId && s.DealId == dealId {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (g *MemoryGateway) SnapshotByHash(ctx context.Context, orgId string, hash string) (*models.EqualsSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.snapshots {
		if s.OrgId == orgId && s.ContentHash == hash {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (g *MemoryGateway) FindBooking(ctx context.Context, orgId string, bookingId int) (*models.TransportBooking, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.bookings {
		if b.OrgId == orgId && b.ID == bookingId {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (g *MemoryGateway) BookingDealRef(ctx context.Context, orgId string, bookingId int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.bookings {
		if b.OrgId == orgId && b.ID == bookingId {
			for _, o := range g.orders {
				if o.ID == b.OrderId {
					return o.DealRef, nil
				}
			}
		}
	}
	return "", nil
}

type memoryTx struct {
	g        *MemoryGateway
	orders   []models.TradeOrder
	bookings []models.TransportBooking
}

func (t *memoryTx) CreateOrder(order *models.TradeOrder) error {
	for _, o := range t.g.orders {
		if o.Code == order.Code {
			return fmt.Errorf("duplicate order code %q", order.Code)
		}
	}
	for _, o := range t.orders {
		if o.Code == order.Code {
			return fmt.Errorf("duplicate order code %q", order.Code)
		}
	}
	order.ID = t.g.nextID
	t.g.nextID++
	t.orders = append(t.orders, *order)
	return nil
}

func (t *memoryTx) CreateBooking(booking *models.TransportBooking) error {
	booking.ID = t.g.nextID
	t.g.nextID++
	t.bookings = append(t.bookings, *booking)
	return nil
}

// InTransaction stages writes and commits them only when fn succeeds. On
// error everything staged is dropped, matching the rollback semantics of the
// production gateway.
func (g *MemoryGateway) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	tx := &memoryTx{g: g}
	if err := fn(tx); err != nil {
		return err
	}
	g.orders = append(g.orders, tx.orders...)
	g.bookings = append(g.bookings, tx.bookings...)
	return nil
}

// Orders returns a copy of all committed orders (test helper).
func (g *MemoryGateway) Orders() []models.TradeOrder {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.TradeOrder, len(g.orders))
	copy(out, g.orders)
	return out
}

// Bookings returns a copy of all committed bookings (test helper).
func (g *MemoryGateway) Bookings() []models.TransportBooking {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.TransportBooking, len(g.bookings))
	copy(out, g.bookings)
	return out
}
