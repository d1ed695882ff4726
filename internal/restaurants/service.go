package restaurants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/pagination"
)

type restaurantRepository interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Restaurant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	ListDishes(ctx context.Context, restaurantID uuid.UUID, availableOnly bool) ([]models.Dish, error)
	FindDish(ctx context.Context, dishID uuid.UUID) (*models.Dish, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Restaurant, error)
	IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// Service exposes the restaurant catalog.
type Service interface {
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[RestaurantDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*RestaurantDetailDTO, error)
	ListDishes(ctx context.Context, restaurantID uuid.UUID) ([]DishDTO, error)
	FindRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error)
	FindDish(ctx context.Context, dishID uuid.UUID) (*models.Dish, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]RestaurantDTO, error)
	OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
	OwnsRestaurant(ctx context.Context, ownerID, restaurantID uuid.UUID) (bool, error)
}

type service struct {
	repo restaurantRepository
}

// NewService builds the catalog service.
func NewService(repo restaurantRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("restaurant repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[RestaurantDTO], error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[RestaurantDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[RestaurantDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list restaurants")
	}
	page := pagination.Build(rows, params.Limit, func(r models.Restaurant) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	items := make([]RestaurantDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, FromModel(row))
	}
	return pagination.Page[RestaurantDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// Get returns the restaurant and its available dishes.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*RestaurantDetailDTO, error) {
	restaurant, err := s.FindRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	dishes, err := s.ListDishes(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RestaurantDetailDTO{RestaurantDTO: FromModel(*restaurant), Dishes: dishes}, nil
}

func (s *service) ListDishes(ctx context.Context, restaurantID uuid.UUID) ([]DishDTO, error) {
	rows, err := s.repo.ListDishes(ctx, restaurantID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dishes")
	}
	dishes := make([]DishDTO, 0, len(rows))
	for _, row := range rows {
		dishes = append(dishes, DishFromModel(row))
	}
	return dishes, nil
}

func (s *service) FindRestaurant(ctx context.Context, id uuid.UUID) (*models.Restaurant, error) {
	restaurant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
	}
	return restaurant, nil
}

func (s *service) FindDish(ctx context.Context, dishID uuid.UUID) (*models.Dish, error) {
	dish, err := s.repo.FindDish(ctx, dishID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dish not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dish")
	}
	return dish, nil
}

func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]RestaurantDTO, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned restaurants")
	}
	out := make([]RestaurantDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) OwnedIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.repo.IDsByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owned restaurant ids")
	}
	return ids, nil
}

func (s *service) OwnsRestaurant(ctx context.Context, ownerID, restaurantID uuid.UUID) (bool, error) {
	restaurant, err := s.repo.FindByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
	}
	return restaurant.OwnerID == ownerID, nil
}
