package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/internal/users"
	pkgAuth "github.com/mvalverde/agrolink-backend/pkg/auth"
	"github.com/mvalverde/agrolink-backend/pkg/auth/session"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/security"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type recordingOutbox struct {
	events []outbox.DomainEvent
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	r.events = append(r.events, event)
	return nil
}

type stubSessionManager struct {
	generated  []string
	revoked    []string
	rotateErr  error
	nextID     string
	nextSecret string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return s.nextID, s.nextSecret, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "agrolink",
		ExpirationMinutes: 30,
	}
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func newRegisterTestService(t *testing.T, db *gorm.DB, env string) (RegisterService, *recordingOutbox) {
	t.Helper()

	sink := &recordingOutbox{}
	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:        gormTxRunner{db: db},
		Outbox:    sink,
		AppConfig: config.AppConfig{Env: env},
	})
	require.NoError(t, err)
	return svc, sink
}

func seedAccount(t *testing.T, db *gorm.DB, email, password string, role enums.UserRole) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Test Account",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRegisterCreatesFarmerAndEmitsEvent(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, sink := newRegisterTestService(t, db, config.AppEnvDev)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Rosa Alvarez",
		Email:    "Rosa@Example.com",
		Password: "harvest-season",
		Role:     "farmer",
	})
	require.NoError(t, err)
	assert.Equal(t, "rosa@example.com", dto.Email)
	assert.Equal(t, enums.UserRoleFarmer, dto.Role)

	var stored models.User
	require.NoError(t, db.First(&stored, "email = ?", "rosa@example.com").Error)
	assert.NotEqual(t, "harvest-season", stored.PasswordHash)

	require.Len(t, sink.events, 1)
	assert.Equal(t, enums.EventUserRegistered, sink.events[0].EventType)
	assert.Equal(t, dto.ID, sink.events[0].AggregateID)
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, _ := newRegisterTestService(t, db, config.AppEnvDev)
	seedAccount(t, db, "taken@example.com", "password123", enums.UserRoleBuyer)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Someone Else",
		Email:    "taken@example.com",
		Password: "password123",
		Role:     "buyer",
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	db := setupAuthTestDB(t)
	svc, _ := newRegisterTestService(t, db, config.AppEnvDev)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Sneaky",
		Email:    "sneaky@example.com",
		Password: "password123",
		Role:     "admin",
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestRegisterAdminGatedToNonProd(t *testing.T) {
	db := setupAuthTestDB(t)

	devSvc, _ := newRegisterTestService(t, db, config.AppEnvDev)
	dto, err := devSvc.RegisterAdmin(context.Background(), AdminRegisterRequest{
		Name:     "Ops Admin",
		Email:    "ops@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, dto.Role)

	prodSvc, _ := newRegisterTestService(t, db, config.AppEnvProd)
	_, err = prodSvc.RegisterAdmin(context.Background(), AdminRegisterRequest{
		Name:     "Ops Admin",
		Email:    "ops2@example.com",
		Password: "password123",
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
}

func TestLoginIssuesTokenPair(t *testing.T) {
	db := setupAuthTestDB(t)
	user := seedAccount(t, db, "farmer@example.com", "harvest-season", enums.UserRoleFarmer)
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Farmer@Example.com",
		Password: "harvest-season",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Len(t, sessions.generated, 1)
	assert.Equal(t, "refresh-"+sessions.generated[0], resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleFarmer, claims.Role)
	assert.Equal(t, sessions.generated[0], claims.ID)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	db := setupAuthTestDB(t)
	seedAccount(t, db, "farmer@example.com", "harvest-season", enums.UserRoleFarmer)
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	for _, attempt := range []LoginRequest{
		{Email: "farmer@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "harvest-season"},
		{Email: "", Password: "harvest-season"},
	} {
		_, err := svc.Login(context.Background(), attempt)
		var typed *pkgerrors.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	db := setupAuthTestDB(t)
	user := seedAccount(t, db, "farmer@example.com", "harvest-season", enums.UserRoleFarmer)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{
		Email:    "farmer@example.com",
		Password: "harvest-season",
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	db := setupAuthTestDB(t)
	user := seedAccount(t, db, "buyer@example.com", "password123", enums.UserRoleBuyer)
	sessions := &stubSessionManager{nextID: session.NewAccessID(), nextSecret: "new-refresh"}
	cfg := testJWTConfig()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: sessions,
		JWTConfig:      cfg,
	})
	require.NoError(t, err)

	// Token that expired an hour ago still identifies the session.
	expired, err := pkgAuth.MintAccessToken(cfg, time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "old-access-id",
	})
	require.NoError(t, err)

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  expired,
		RefreshToken: "old-refresh",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-refresh", pair.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(cfg, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, sessions.nextID, claims.ID)
}

func TestRefreshRejectsInvalidToken(t *testing.T) {
	db := setupAuthTestDB(t)
	user := seedAccount(t, db, "buyer@example.com", "password123", enums.UserRoleBuyer)
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	cfg := testJWTConfig()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: sessions,
		JWTConfig:      cfg,
	})
	require.NoError(t, err)

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    "access-id",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  token,
		RefreshToken: "stolen",
	})
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	db := setupAuthTestDB(t)
	sessions := &stubSessionManager{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(db),
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "access-id"))
	assert.Equal(t, []string{"access-id"}, sessions.revoked)

	err = svc.Logout(context.Background(), "  ")
	var typed *pkgerrors.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
