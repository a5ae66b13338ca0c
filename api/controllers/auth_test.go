package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/internal/auth"
	"github.com/mvalverde/agrolink-backend/internal/users"
	pkgAuth "github.com/mvalverde/agrolink-backend/pkg/auth"
	"github.com/mvalverde/agrolink-backend/pkg/auth/session"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	pkgerrors "github.com/mvalverde/agrolink-backend/pkg/errors"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refreshFn func(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error)
	logoutFn  func(ctx context.Context, accessID string) error
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: &users.UserDTO{}}, nil
}

func (s stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, req)
	}
	return &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s stubAuthService) Logout(ctx context.Context, accessID string) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, accessID)
	}
	return nil
}

type stubRegisterService struct {
	registerFn      func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)
	registerAdminFn func(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error)
}

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return &users.UserDTO{ID: uuid.New()}, nil
}

func (s stubRegisterService) RegisterAdmin(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error) {
	if s.registerAdminFn != nil {
		return s.registerAdminFn(ctx, req)
	}
	return &users.UserDTO{ID: uuid.New(), Role: enums.UserRoleAdmin}, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters",
		Issuer:                 "agrolink-test",
		ExpirationMinutes:      60,
		RefreshTokenTTLMinutes: 120,
	}
}

func TestAuthLoginSuccess(t *testing.T) {
	userID := uuid.New()
	svc := stubAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			if req.Email != "ana@example.com" || req.Password != "hunter2hunter2" {
				t.Fatalf("unexpected credentials %+v", req)
			}
			return &auth.LoginResponse{
				AccessToken:  "signed-access",
				RefreshToken: "signed-refresh",
				User:         &users.UserDTO{ID: userID, Email: req.Email, Role: enums.UserRoleBuyer},
			}, nil
		},
	}

	body := `{"email":"ana@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-AL-Token"); got != "signed-access" {
		t.Fatalf("unexpected access token header %q", got)
	}

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User == nil || envelope.Data.User.ID != userID {
		t.Fatalf("unexpected user %+v", envelope.Data.User)
	}
}

func TestAuthLoginRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))

	resp := httptest.NewRecorder()
	AuthLogin(stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginSurfacesUnauthorized(t *testing.T) {
	svc := stubAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		},
	}

	body := `{"email":"ana@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRegisterCreatesAndLogsIn(t *testing.T) {
	var registered auth.RegisterRequest
	reg := stubRegisterService{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
			registered = req
			return &users.UserDTO{ID: uuid.New(), Email: req.Email, Role: enums.UserRoleFarmer}, nil
		},
	}
	var loggedIn auth.LoginRequest
	svc := stubAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			loggedIn = req
			return &auth.LoginResponse{AccessToken: "fresh-access", RefreshToken: "fresh-refresh", User: &users.UserDTO{}}, nil
		},
	}

	body := `{"name":"Luis","email":"luis@example.com","password":"hunter2hunter2","role":"farmer"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AuthRegister(reg, svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if registered.Email != "luis@example.com" || registered.Role != "farmer" {
		t.Fatalf("unexpected register request %+v", registered)
	}
	if loggedIn.Email != registered.Email || loggedIn.Password != registered.Password {
		t.Fatalf("login credentials do not match registration: %+v", loggedIn)
	}
	if got := resp.Header().Get("X-AL-Token"); got != "fresh-access" {
		t.Fatalf("unexpected access token header %q", got)
	}
}

func TestAuthRegisterRejectsAdminRole(t *testing.T) {
	body := `{"name":"Eve","email":"eve@example.com","password":"hunter2hunter2","role":"admin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AuthRegister(stubRegisterService{}, stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminAuthRegisterBlockedInProduction(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "prod"

	body := `{"name":"Root","email":"root@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AdminAuthRegister(stubRegisterService{}, stubAuthService{}, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestAdminAuthRegisterSeedsAdmin(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Env = "dev"

	adminID := uuid.New()
	reg := stubRegisterService{
		registerAdminFn: func(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error) {
			return &users.UserDTO{ID: adminID, Email: req.Email, Role: enums.UserRoleAdmin}, nil
		},
	}

	body := `{"name":"Root","email":"root@example.com","password":"hunter2hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AdminAuthRegister(reg, stubAuthService{}, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			User         users.UserDTO `json:"user"`
			AccessToken  string        `json:"access_token"`
			RefreshToken string        `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User.ID != adminID || envelope.Data.User.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected user %+v", envelope.Data.User)
	}
	if envelope.Data.AccessToken == "" || envelope.Data.RefreshToken == "" {
		t.Fatal("expected tokens in response")
	}
}

func TestAuthRefreshRotatesPair(t *testing.T) {
	svc := stubAuthService{
		refreshFn: func(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
			if req.AccessToken != "stale-access" || req.RefreshToken != "stale-refresh" {
				t.Fatalf("unexpected refresh request %+v", req)
			}
			return &auth.TokenPair{AccessToken: "rotated-access", RefreshToken: "rotated-refresh"}, nil
		},
	}

	body := `{"access_token":"stale-access","refresh_token":"stale-refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(body))

	resp := httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-AL-Token"); got != "rotated-access" {
		t.Fatalf("unexpected access token header %q", got)
	}

	var envelope struct {
		Data auth.TokenPair `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "rotated-refresh" {
		t.Fatalf("unexpected pair %+v", envelope.Data)
	}
}

func TestAuthLogoutRevokesPresentedSession(t *testing.T) {
	cfg := testJWTConfig()
	jti := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleBuyer,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var revoked string
	svc := stubAuthService{
		logoutFn: func(ctx context.Context, accessID string) error {
			revoked = accessID
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	AuthLogout(svc, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if revoked != jti {
		t.Fatalf("expected revocation of %s got %s", jti, revoked)
	}
}

func TestAuthLogoutMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)

	resp := httptest.NewRecorder()
	AuthLogout(stubAuthService{}, testJWTConfig(), nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutRejectsGarbageToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	resp := httptest.NewRecorder()
	AuthLogout(stubAuthService{}, testJWTConfig(), nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
