package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/angelmondragon/dishdash-backend/internal/users"
	pkgAuth "github.com/angelmondragon/dishdash-backend/pkg/auth"
	"github.com/angelmondragon/dishdash-backend/pkg/auth/session"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/angelmondragon/dishdash-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/outbox"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "dishdash",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type memBackend struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memBackend) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memBackend) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memBackend) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type harness struct {
	svc     Service
	conn    *gorm.DB
	backend *memBackend
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	backend := &memBackend{data: map[string]string{}}
	manager, err := session.NewManager(backend, testJWT)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	h := &harness{conn: conn, backend: backend, now: time.Now().UTC()}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: manager,
		Tx:             gormTx{db: conn},
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		JWTConfig:      testJWT,
		Now:            func() time.Time { return h.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) register(t *testing.T, email string, role enums.UserRole) *users.UserDTO {
	t.Helper()
	user, err := h.svc.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "correct-horse",
		Name:     "Test User",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return user
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestRegisterCreatesUserAndEmitsEvent(t *testing.T) {
	h := newHarness(t)

	user := h.register(t, "  Ana@Example.com ", enums.UserRoleRestaurant)
	if user.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != enums.UserRoleRestaurant || !user.IsActive {
		t.Fatalf("unexpected user %+v", user)
	}

	var events []models.OutboxEvent
	if err := h.conn.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventUserRegistered || events[0].AggregateID != user.ID {
		t.Fatalf("expected one user_registered event, got %+v", events)
	}
}

func TestRegisterRejections(t *testing.T) {
	h := newHarness(t)
	h.register(t, "dup@example.com", enums.UserRoleCustomer)

	cases := []struct {
		name string
		req  RegisterRequest
		code pkgerrors.Code
	}{
		{"admin role", RegisterRequest{Email: "a@example.com", Password: "correct-horse", Name: "A", Role: enums.UserRoleAdmin}, pkgerrors.CodeValidation},
		{"system role", RegisterRequest{Email: "s@example.com", Password: "correct-horse", Name: "S", Role: enums.UserRoleSystem}, pkgerrors.CodeValidation},
		{"short password", RegisterRequest{Email: "p@example.com", Password: "short", Name: "P", Role: enums.UserRoleCustomer}, pkgerrors.CodeValidation},
		{"blank name", RegisterRequest{Email: "n@example.com", Password: "correct-horse", Name: "  ", Role: enums.UserRoleCustomer}, pkgerrors.CodeValidation},
		{"duplicate email", RegisterRequest{Email: "DUP@example.com", Password: "correct-horse", Name: "D", Role: enums.UserRoleCustomer}, pkgerrors.CodeConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.Register(context.Background(), tc.req)
			assertCode(t, err, tc.code)
		})
	}

	var count int64
	h.conn.Model(&models.OutboxEvent{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected only the first registration to emit, got %d events", count)
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	h := newHarness(t)
	registered := h.register(t, "rider@example.com", enums.UserRoleDelivery)

	resp, err := h.svc.Login(context.Background(), LoginRequest{Email: "Rider@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != registered.ID || claims.Role != enums.UserRoleDelivery {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
	if _, ok := h.backend.data["sess:"+claims.ID]; !ok {
		t.Fatalf("expected session stored under token jti")
	}
	if resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	user := h.register(t, "eater@example.com", enums.UserRoleCustomer)

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "eater@example.com", Password: "wrong-password"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "correct-horse"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	if err := h.conn.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "eater@example.com", Password: "correct-horse"})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	h := newHarness(t)
	h.register(t, "eater@example.com", enums.UserRoleCustomer)
	ctx := context.Background()

	login, err := h.svc.Login(ctx, LoginRequest{Email: "eater@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// past the access TTL but inside the refresh TTL
	h.now = h.now.Add(20 * time.Minute)
	pair, err := h.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
	if _, err := pkgAuth.ParseAccessTokenAt(testJWT, pair.AccessToken, h.now); err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if _, err := pkgAuth.ParseAccessTokenAt(testJWT, login.AccessToken, h.now); err == nil {
		t.Fatalf("expected the original access token to have expired")
	}

	_, err = h.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = h.svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: pair.RefreshToken})
	assertCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newHarness(t)
	h.register(t, "eater@example.com", enums.UserRoleCustomer)
	ctx := context.Background()

	login, err := h.svc.Login(ctx, LoginRequest{Email: "eater@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := h.svc.Logout(ctx, claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(h.backend.data) != 0 {
		t.Fatalf("expected session removed, got %v", h.backend.data)
	}
	_, err = h.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	assertCode(t, err, pkgerrors.CodeUnauthorized)

	assertCode(t, h.svc.Logout(ctx, " "), pkgerrors.CodeUnauthorized)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing dependencies to fail")
	}
}
