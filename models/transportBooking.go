package models

import "time"

// TransportBooking is an optional delivery record attached to one side of a
// paired order: either a single COMPACT leg on the purchase order, or an
// INBOUND (vendor to hub) leg on the purchase order plus an OUTBOUND (hub to
// customer) leg on the sales order.
type TransportBooking struct {
	ID            int        `gorm:"primary_key" json:"id"`
	OrgId         string     `gorm:"size:64;not null;index" json:"org_id"`
	BookingNumber string     `gorm:"size:100;not null;index:uniq_booking_no,unique" json:"booking_number"`
	OrderId       int        `gorm:"not null;index" json:"order_id"`
	Leg           BookingLeg `gorm:"size:10;not null" json:"leg"`
	FromLocation  string     `gorm:"size:255;not null" json:"from_location"`
	ToLocation    string     `gorm:"size:255;not null" json:"to_location"`
	VehicleType   string     `gorm:"size:100;default:null" json:"vehicle_type"`
	ScheduledDate *time.Time `gorm:"default:null" json:"scheduled_date"`
	Notes         string     `gorm:"type:text;default:null" json:"notes"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
