package domain

import "time"

// Product is a downloadable digital product.
// FilePath references the private store ("products/<name>"), ImagePath the public one ("/products/<name>").
type Product struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name                   string    `gorm:"size:200;index" json:"name"`
	Description            string    `gorm:"type:text" json:"description"`
	PriceInCents           int64     `json:"price_in_cents"`
	FilePath               string    `gorm:"size:1024" json:"file_path"`
	ImagePath              string    `gorm:"size:1024" json:"image_path"`
	IsAvailableForPurchase bool      `gorm:"index;default:false" json:"is_available_for_purchase"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}
