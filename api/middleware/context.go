package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

// principal is the authenticated caller as seeded by Auth. It is stored by
// value under a single key; every With* call stores an updated copy.
type principal struct {
	userID   string
	role     string
	accessID string
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	if ctx == nil {
		return principal{}
	}
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

func withPrincipal(ctx context.Context, update func(*principal)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	p := principalFrom(ctx)
	update(&p)
	return context.WithValue(ctx, principalKey{}, p)
}

func UserIDFromContext(ctx context.Context) string { return principalFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return principalFrom(ctx).role }

// AccessIDFromContext returns the jti of the access token that authenticated the request.
func AccessIDFromContext(ctx context.Context) string { return principalFrom(ctx).accessID }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.role = role })
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withPrincipal(ctx, func(p *principal) { p.accessID = accessID })
}

// ActorFromContext returns the authenticated user id and role seeded by Auth.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.UserRole, error) {
	p := principalFrom(ctx)
	userID, err := uuid.Parse(p.userID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	role, err := enums.ParseUserRole(p.role)
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}
	return userID, role, nil
}
