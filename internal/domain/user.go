package domain

import "time"

// User is a storefront customer
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (User) TableName() string {
	return "shop_user"
}
