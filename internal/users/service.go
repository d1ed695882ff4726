package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveByRole(ctx context.Context, role enums.UserRole) ([]models.User, error)
}

// Service exposes read access to user profiles.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	ListDeliveryAgents(ctx context.Context) ([]UserDTO, error)
}

type service struct {
	repo userReader
}

func NewService(repo userReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// ListDeliveryAgents backs the assignment picker on restaurant dashboards.
func (s *service) ListDeliveryAgents(ctx context.Context) ([]UserDTO, error) {
	rows, err := s.repo.ListActiveByRole(ctx, enums.UserRoleDelivery)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery agents")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}
