package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Restaurant is owned by a user with the restaurant role.
type Restaurant struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Address     *string   `gorm:"column:address"`
	Cuisine     *string   `gorm:"column:cuisine"`
	ImageURL    *string   `gorm:"column:image_url"`
	IsOpen      bool      `gorm:"column:is_open;not null;default:true"`
	Dishes      []Dish    `gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Restaurant) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Dish is a menu item. Prices are integer cents.
type Dish struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid;not null"`
	Name         string    `gorm:"column:name;not null"`
	Description  *string   `gorm:"column:description"`
	PriceCents   int64     `gorm:"column:price_cents;not null"`
	ImageURL     *string   `gorm:"column:image_url"`
	IsAvailable  bool      `gorm:"column:is_available;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Dish) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
