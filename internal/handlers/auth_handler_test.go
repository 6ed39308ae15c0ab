package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finwise/internal/errors"
	"finwise/internal/identity"
	"finwise/internal/middleware"
	"finwise/internal/models"
	"finwise/internal/services"
	"finwise/internal/validator"
)

// --- mock user service ---

type mockUserService struct {
	registerFn        func(name, email, password string) (*models.User, error)
	authenticateFn    func(email, password string) (*models.User, error)
	loginWithGoogleFn func(profile *identity.Profile) (*models.User, error)
	getUserByIDFn     func(userID string) (*models.User, error)
	updateThemeFn     func(userID string, theme models.Theme) (*models.User, error)
	deleteUserFn      func(userID string) error
}

func (m *mockUserService) Register(_ context.Context, name, email, password string) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(name, email, password)
	}
	return &models.User{Base: models.Base{ID: "u1"}, Name: name, Email: email}, nil
}

func (m *mockUserService) Authenticate(_ context.Context, email, password string) (*models.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(email, password)
	}
	return &models.User{Base: models.Base{ID: "u1"}, Email: email}, nil
}

func (m *mockUserService) LoginWithGoogle(_ context.Context, profile *identity.Profile) (*models.User, error) {
	if m.loginWithGoogleFn != nil {
		return m.loginWithGoogleFn(profile)
	}
	return &models.User{Base: models.Base{ID: "u1"}, Email: profile.Email, Provider: models.ProviderGoogle}, nil
}

func (m *mockUserService) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(userID)
	}
	return &models.User{Base: models.Base{ID: userID}}, nil
}

func (m *mockUserService) UpdateTheme(_ context.Context, userID string, theme models.Theme) (*models.User, error) {
	if m.updateThemeFn != nil {
		return m.updateThemeFn(userID, theme)
	}
	return &models.User{Base: models.Base{ID: userID}, Theme: theme}, nil
}

func (m *mockUserService) DeleteUser(_ context.Context, userID string) error {
	if m.deleteUserFn != nil {
		return m.deleteUserFn(userID)
	}
	return nil
}

var _ services.UserServicer = (*mockUserService)(nil)

// --- mock audit service ---

type mockAuditService struct {
	mu      sync.Mutex
	entries []services.AuditEntry
}

func (m *mockAuditService) Log(_ context.Context, entry services.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockAuditService) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- mock verifier ---

type mockVerifier struct {
	verifyFn func(credential string) (*identity.Profile, error)
}

func (m *mockVerifier) Verify(_ context.Context, credential string) (*identity.Profile, error) {
	if m.verifyFn != nil {
		return m.verifyFn(credential)
	}
	return &identity.Profile{Subject: "g-1", Email: "g@example.com", EmailVerified: true, Name: "G"}, nil
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/register", handler.Register)
	r.POST("/auth/login", handler.Login)
	r.POST("/auth/google", handler.GoogleLogin)
	auth := r.Group("", injectUserID("u1"))
	auth.GET("/profile", handler.GetProfile)
	auth.PUT("/profile/theme", handler.UpdateTheme)
	auth.DELETE("/profile", handler.DeleteAccount)
	return r
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestAuthHandler_Register(t *testing.T) {
	t.Run("returns 201 with token on success", func(t *testing.T) {
		audit := &mockAuditService{}
		handler := NewAuthHandler(&mockUserService{}, audit, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register",
			`{"name":"Ana","email":"ana@example.com","password":"password123"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		token, _ := result["token"].(string)
		claims, err := middleware.ParseToken(token)
		if err != nil {
			t.Fatalf("expected a valid token, got error: %v", err)
		}
		if claims.UserID != "u1" {
			t.Errorf("expected token for u1, got %s", claims.UserID)
		}
		user := result["user"].(map[string]interface{})
		if user["name"] != "Ana" {
			t.Errorf("expected name Ana, got %v", user["name"])
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "REGISTER" {
			t.Errorf("expected REGISTER audit entry, got %v", got)
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register", `{"email":"ana@example.com","password":"password123"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register", `{"name":"Ana","email":"ana@example.com","password":"short"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate email", func(t *testing.T) {
		userSvc := &mockUserService{
			registerFn: func(_, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		audit := &mockAuditService{}
		handler := NewAuthHandler(userSvc, audit, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/register",
			`{"name":"Ana","email":"ana@example.com","password":"password123"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_EMAIL")
		if len(audit.actions()) != 0 {
			t.Error("failed registration must not be audited")
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with token", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login", `{"email":"ana@example.com","password":"password123"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["token"] == "" {
			t.Error("expected token in response")
		}
	})

	t.Run("returns 401 on invalid credentials", func(t *testing.T) {
		userSvc := &mockUserService{
			authenticateFn: func(_, _ string) (*models.User, error) {
				return nil, apperrors.ErrInvalidCredentials
			},
		}
		handler := NewAuthHandler(userSvc, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login", `{"email":"ana@example.com","password":"wrong-password"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_CREDENTIALS")
	})

	t.Run("returns 400 for social account", func(t *testing.T) {
		userSvc := &mockUserService{
			authenticateFn: func(_, _ string) (*models.User, error) {
				return nil, apperrors.ErrSocialAccount
			},
		}
		handler := NewAuthHandler(userSvc, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/login", `{"email":"g@example.com","password":"anything"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SOCIAL_ACCOUNT")
	})
}

func TestAuthHandler_GoogleLogin(t *testing.T) {
	t.Run("passes the verified profile to the user service", func(t *testing.T) {
		var got *identity.Profile
		userSvc := &mockUserService{
			loginWithGoogleFn: func(profile *identity.Profile) (*models.User, error) {
				got = profile
				return &models.User{Base: models.Base{ID: "u9"}, Email: profile.Email, Provider: models.ProviderGoogle}, nil
			},
		}
		verifier := &mockVerifier{
			verifyFn: func(credential string) (*identity.Profile, error) {
				if credential != "id-token" {
					t.Errorf("unexpected credential %q", credential)
				}
				return &identity.Profile{Subject: "g-42", Email: "g@example.com", EmailVerified: true}, nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockAuditService{}, verifier)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/google", `{"credential":"id-token"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got == nil || got.Subject != "g-42" {
			t.Errorf("expected profile g-42, got %+v", got)
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["provider"] != "google" {
			t.Errorf("expected google provider, got %v", user["provider"])
		}
	})

	t.Run("returns 401 when the token is rejected", func(t *testing.T) {
		verifier := &mockVerifier{
			verifyFn: func(string) (*identity.Profile, error) {
				return nil, apperrors.ErrInvalidIDToken
			},
		}
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, verifier)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/google", `{"credential":"forged"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_ID_TOKEN")
	})

	t.Run("returns 503 when not configured", func(t *testing.T) {
		verifier := &mockVerifier{
			verifyFn: func(string) (*identity.Profile, error) {
				return nil, apperrors.ErrNotConfigured
			},
		}
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, verifier)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/google", `{"credential":"id-token"}`)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing credential", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/auth/google", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Profile(t *testing.T) {
	t.Run("returns the current user", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(userID string) (*models.User, error) {
				return &models.User{Base: models.Base{ID: userID}, Name: "Ana", Theme: models.ThemeDark}, nil
			},
		}
		handler := NewAuthHandler(userSvc, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["id"] != "u1" || user["theme"] != "dark" {
			t.Errorf("unexpected user: %v", user)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := gin.New()
		r.GET("/profile", handler.GetProfile)

		rec := doRequest(r, "GET", "/profile", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "UNAUTHORIZED")
	})

	t.Run("rejects unknown theme", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "PUT", "/profile/theme", `{"theme":"blue"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("updates theme", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "PUT", "/profile/theme", `{"theme":"dark"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["theme"] != "dark" {
			t.Errorf("expected dark theme, got %v", user["theme"])
		}
	})
}

func TestAuthHandler_DeleteAccount(t *testing.T) {
	t.Run("deletes and audits", func(t *testing.T) {
		var deleted string
		userSvc := &mockUserService{
			deleteUserFn: func(userID string) error {
				deleted = userID
				return nil
			},
		}
		audit := &mockAuditService{}
		handler := NewAuthHandler(userSvc, audit, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "DELETE", "/profile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if deleted != "u1" {
			t.Errorf("expected u1 deleted, got %q", deleted)
		}
		if got := audit.actions(); len(got) != 1 || got[0] != "DELETE_ACCOUNT" {
			t.Errorf("expected DELETE_ACCOUNT audit entry, got %v", got)
		}
	})

	t.Run("hides internal failures", func(t *testing.T) {
		userSvc := &mockUserService{
			deleteUserFn: func(string) error {
				return apperrors.Wrap(apperrors.ErrInternalServer, context.DeadlineExceeded)
			},
		}
		handler := NewAuthHandler(userSvc, &mockAuditService{}, &mockVerifier{})
		r := setupAuthRouter(handler)

		rec := doRequest(r, "DELETE", "/profile", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "deadline") {
			t.Errorf("internal cause leaked: %s", rec.Body.String())
		}
	})
}
