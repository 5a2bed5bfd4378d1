package workflow

import (
	"context"
	"errors"

	"github.com/coraeos/obari_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Tx is the write surface available inside one atomic paired-order
// transaction. Any error returned from the transaction body rolls back every
// write; no partial state is ever visible.
type Tx interface {
	CreateOrder(order *models.TradeOrder) error
	CreateBooking(booking *models.TransportBooking) error
}

// Gateway is the persistence collaborator the core calls through. It owns
// all schema/storage concerns; the core never assumes a particular engine.
//
// CreateSnapshotOnce is write-once: when a row with the same
// (org, deal, content hash) already exists the call reports created=false
// with no error — the caller treats that as success, which is what makes
// snapshot finalization safe to retry under concurrent duplicate submissions
// without a lock.
type Gateway interface {
	CreateSnapshotOnce(ctx context.Context, snap *models.EqualsSnapshot) (created bool, err error)
	LatestSnapshot(ctx context.Context, orgId string, dealId string, stage models.FlowMode) (*models.EqualsSnapshot, error)
	SnapshotsForDeal(ctx context.Context, orgId string, dealId string) ([]models.EqualsSnapshot, error)
	SnapshotByHash(ctx context.Context, orgId string, hash string) (*models.EqualsSnapshot, error)
	FindBooking(ctx context.Context, orgId string, bookingId int) (*models.TransportBooking, error)
	BookingDealRef(ctx context.Context, orgId string, bookingId int) (string, error)
	InTransaction(ctx context.Context, fn func(tx Tx) error) error
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GormGateway is the production Gateway backed by the shared gorm DB.
type GormGateway struct {
	db *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{db: db}
}

func (g *GormGateway) CreateSnapshotOnce(ctx context.Context, snap *models.EqualsSnapshot) (bool, error) {
	err := g.db.WithContext(ctx).Create(snap).Error
	if err == nil {
		return true, nil
	}
	if isDuplicateKeyErr(err) {
		// Identical content already stored: idempotent no-op.
		return false, nil
	}
	return false, err
}

func (g *GormGateway) LatestSnapshot(ctx context.Context, orgId string, dealId string, stage models.FlowMode) (*models.EqualsSnapshot, error) {
	var snap models.EqualsSnapshot
	err := g.db.WithContext(ctx).
		Where("org_id = ? AND deal_id = ? AND stage = ?", orgId, dealId, stage).
		Order("at DESC, id DESC").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (g *GormGateway) SnapshotsForDeal(ctx context.Context, orgId string, dealId string) ([]models.EqualsSnapshot, error) {
	var snaps []models.EqualsSnapshot
	err := g.db.WithContext(ctx).
		Where("org_id = ? AND deal_id = ?", orgId, dealId).
		Order("at DESC, id DESC").
		Find(&snaps).Error
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

func (g *GormGateway) SnapshotByHash(ctx context.Context, orgId string, hash string) (*models.EqualsSnapshot, error) {
	var snap models.EqualsSnapshot
	err := g.db.WithContext(ctx).
		Where("org_id = ? AND content_hash = ?", orgId, hash).
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (g *GormGateway) FindBooking(ctx context.Context, orgId string, bookingId int) (*models.TransportBooking, error) {
	var booking models.TransportBooking
	err := g.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgId, bookingId).
		First(&booking).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (g *GormGateway) BookingDealRef(ctx context.Context, orgId string, bookingId int) (string, error) {
	var dealRef string
	err := g.db.WithContext(ctx).
		Model(&models.TradeOrder{}).
		Joins("JOIN transport_bookings ON transport_bookings.order_id = trade_orders.id").
		Where("transport_bookings.org_id = ? AND transport_bookings.id = ?", orgId, bookingId).
		Select("trade_orders.deal_ref").
		Scan(&dealRef).Error
	if err != nil {
		return "", err
	}
	return dealRef, nil
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) CreateOrder(order *models.TradeOrder) error {
	return t.tx.Create(order).Error
}

func (t *gormTx) CreateBooking(booking *models.TransportBooking) error {
	return t.tx.Create(booking).Error
}

func (g *GormGateway) InTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{tx: tx})
	})
}
