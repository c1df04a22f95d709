package domain

import "time"

// Order is a completed purchase; this service only aggregates it.
type Order struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	PricePaidInCents int64     `json:"price_paid_in_cents"`
	UserID           int64     `gorm:"index" json:"user_id,string"`
	ProductID        int64     `gorm:"index" json:"product_id,string"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "order_record"
}
