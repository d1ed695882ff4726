package restaurants

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/money"
)

// ListFilter narrows the public restaurant listing.
type ListFilter struct {
	OpenOnly bool
	Cuisine  string
	Query    string
}

// RestaurantDTO is the public view of a restaurant.
type RestaurantDTO struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Cuisine     *string   `json:"cuisine,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsOpen      bool      `json:"is_open"`
	CreatedAt   time.Time `json:"created_at"`
}

// DishDTO carries prices both as cents and as a display string.
type DishDTO struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	PriceCents   int64     `json:"price_cents"`
	Price        string    `json:"price"`
	ImageURL     *string   `json:"image_url,omitempty"`
	IsAvailable  bool      `json:"is_available"`
}

// RestaurantDetailDTO is a restaurant with its menu.
type RestaurantDetailDTO struct {
	RestaurantDTO
	Dishes []DishDTO `json:"dishes"`
}

func FromModel(m models.Restaurant) RestaurantDTO {
	return RestaurantDTO{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		Address:     m.Address,
		Cuisine:     m.Cuisine,
		ImageURL:    m.ImageURL,
		IsOpen:      m.IsOpen,
		CreatedAt:   m.CreatedAt,
	}
}

func DishFromModel(m models.Dish) DishDTO {
	return DishDTO{
		ID:           m.ID,
		RestaurantID: m.RestaurantID,
		Name:         m.Name,
		Description:  m.Description,
		PriceCents:   m.PriceCents,
		Price:        money.FormatCents(m.PriceCents),
		ImageURL:     m.ImageURL,
		IsAvailable:  m.IsAvailable,
	}
}
