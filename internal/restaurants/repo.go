package restaurants

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

// Repository reads restaurants and their menus.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository scoped to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// List returns restaurants newest first, fetching one extra row so the caller
// can detect a following page.
func (r *Repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Restaurant, error) {
	query := r.db.WithContext(ctx).Model(&models.Restaurant{})
	if filter.OpenOnly {
		query = query.Where("is_open = ?", true)
	}
	if filter.Cuisine != "" {
		query = query.Where("LOWER(cuisine) = LOWER(?)", filter.Cuisine)
	}
	if filter.Query != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Query)+"%")
	}

	var rows []models.Restaurant
	err := query.Scopes(pagination.Keyset(params)).Find(&rows).Error
	return rows, err
}

// FindByID loads a single restaurant without its menu.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

// FindByIDTx is FindByID read through tx, so the row is seen by the same
// transaction that writes against it. A nil tx uses the repository handle.
func (r *Repository) FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Restaurant, error) {
	return r.WithTx(tx).FindByID(ctx, id)
}

// ListDishes returns the menu ordered by name.
func (r *Repository) ListDishes(ctx context.Context, restaurantID uuid.UUID, availableOnly bool) ([]models.Dish, error) {
	query := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if availableOnly {
		query = query.Where("is_available = ?", true)
	}
	var dishes []models.Dish
	if err := query.Order("name ASC").Order("id ASC").Find(&dishes).Error; err != nil {
		return nil, err
	}
	return dishes, nil
}

func (r *Repository) FindDish(ctx context.Context, dishID uuid.UUID) (*models.Dish, error) {
	var dish models.Dish
	if err := r.db.WithContext(ctx).First(&dish, "id = ?", dishID).Error; err != nil {
		return nil, err
	}
	return &dish, nil
}

// ListByOwner returns every restaurant the user owns.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Restaurant, error) {
	var rows []models.Restaurant
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// IDsByOwner returns the ids of every restaurant the user owns.
func (r *Repository) IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Restaurant{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	return ids, err
}
