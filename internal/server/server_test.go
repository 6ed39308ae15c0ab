package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "finwise/internal/errors"
	"finwise/internal/identity"
	"finwise/internal/logger"
	"finwise/internal/models"
	"finwise/internal/services"
	"finwise/internal/testutil"
	"finwise/internal/validator"
)

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// fakeVerifier accepts "valid:<subject>:<email>" credentials.
type fakeVerifier struct{}

func (fakeVerifier) Verify(_ context.Context, credential string) (*identity.Profile, error) {
	parts := strings.Split(credential, ":")
	if len(parts) != 3 || parts[0] != "valid" {
		return nil, apperrors.ErrInvalidIDToken
	}
	return &identity.Profile{Subject: parts[1], Email: parts[2], EmailVerified: true, Name: parts[1]}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	router := NewRouter(Dependencies{
		Users:        services.NewUserService(db),
		Categories:   services.NewCategoryService(db),
		Transactions: services.NewTransactionService(db),
		Summary:      services.NewSummaryService(db),
		Audit:        services.NewAuditService(db, nil),
		Verifier:     fakeVerifier{},
		CORSOrigin:   "*",
	})

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

// expect fails the test unless rec has the wanted status.
func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

// registerUser registers a new user and returns the token and user ID.
func (app *testApp) registerUser(t *testing.T, email string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Test User","email":%q,"password":%q}`, email, testutil.TestPassword)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	expect(t, rec, http.StatusCreated)
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// createCategory creates a category through the API and returns its ID.
func (app *testApp) createCategory(t *testing.T, token, name, categoryType string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":%q,"color":"#10b981"}`, name, categoryType)
	rec := app.request("POST", "/api/v1/categories", body, token)
	expect(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["category"].(map[string]interface{})["id"].(string)
}

// createTransaction posts a transaction and returns the recorder.
func (app *testApp) createTransaction(token, txType, amount, categoryID, date string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"type":%q,"amount":%s,"description":"entry","category_id":%q,"date":%q}`,
		txType, amount, categoryID, date)
	return app.request("POST", "/api/v1/transactions", body, token)
}

func TestHealthAndDocs(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")
	expect(t, rec, http.StatusOK)
	if parseJSON(t, rec)["status"] != "ok" {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}

	rec = app.request("GET", "/swagger/doc.json", "", "")
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "/transactions/summary") {
		t.Error("expected summary route in API docs")
	}
}

func TestAuthFlow(t *testing.T) {
	t.Run("register_login_profile_theme", func(t *testing.T) {
		app := setupApp(t)
		app.registerUser(t, "auth@test.com")

		rec := app.request("POST", "/api/v1/auth/login",
			fmt.Sprintf(`{"email":"AUTH@test.com","password":%q}`, testutil.TestPassword), "")
		expect(t, rec, http.StatusOK)
		token := parseJSON(t, rec)["token"].(string)

		rec = app.request("GET", "/api/v1/profile", "", token)
		expect(t, rec, http.StatusOK)
		user := parseJSON(t, rec)["user"].(map[string]interface{})
		if user["email"] != "auth@test.com" || user["theme"] != "light" {
			t.Errorf("unexpected profile: %v", user)
		}

		rec = app.request("PUT", "/api/v1/profile/theme", `{"theme":"dark"}`, token)
		expect(t, rec, http.StatusOK)
		rec = app.request("GET", "/api/v1/profile", "", token)
		if parseJSON(t, rec)["user"].(map[string]interface{})["theme"] != "dark" {
			t.Error("expected theme to persist")
		}
	})

	t.Run("duplicate_email", func(t *testing.T) {
		app := setupApp(t)
		app.registerUser(t, "dup@test.com")

		rec := app.request("POST", "/api/v1/auth/register",
			`{"name":"Again","email":"dup@test.com","password":"password123"}`, "")
		expect(t, rec, http.StatusConflict)
		if code := errorCode(t, rec); code != "DUPLICATE_EMAIL" {
			t.Errorf("expected DUPLICATE_EMAIL, got %s", code)
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		app := setupApp(t)
		app.registerUser(t, "wrong@test.com")

		rec := app.request("POST", "/api/v1/auth/login", `{"email":"wrong@test.com","password":"wrongpassword"}`, "")
		expect(t, rec, http.StatusUnauthorized)
		if code := errorCode(t, rec); code != "INVALID_CREDENTIALS" {
			t.Errorf("expected INVALID_CREDENTIALS, got %s", code)
		}
	})

	t.Run("google_sign_in_then_password_login", func(t *testing.T) {
		app := setupApp(t)

		rec := app.request("POST", "/api/v1/auth/google", `{"credential":"valid:g-1:social@test.com"}`, "")
		expect(t, rec, http.StatusOK)
		first := parseJSON(t, rec)["user"].(map[string]interface{})
		if first["provider"] != "google" {
			t.Errorf("expected google provider, got %v", first["provider"])
		}

		rec = app.request("POST", "/api/v1/auth/google", `{"credential":"valid:g-1:social@test.com"}`, "")
		expect(t, rec, http.StatusOK)
		if parseJSON(t, rec)["user"].(map[string]interface{})["id"] != first["id"] {
			t.Error("expected the same account on repeat sign-in")
		}

		rec = app.request("POST", "/api/v1/auth/login", `{"email":"social@test.com","password":"password123"}`, "")
		expect(t, rec, http.StatusBadRequest)
		if code := errorCode(t, rec); code != "SOCIAL_ACCOUNT" {
			t.Errorf("expected SOCIAL_ACCOUNT, got %s", code)
		}

		rec = app.request("POST", "/api/v1/auth/google", `{"credential":"forged"}`, "")
		expect(t, rec, http.StatusUnauthorized)
	})

	t.Run("protected_routes_need_a_token", func(t *testing.T) {
		app := setupApp(t)

		expect(t, app.request("GET", "/api/v1/profile", "", ""), http.StatusUnauthorized)
		expect(t, app.request("GET", "/api/v1/categories", "", "not-a-jwt"), http.StatusUnauthorized)
	})
}

func TestCategoryTransactionFlow(t *testing.T) {
	t.Run("reference_rules", func(t *testing.T) {
		app := setupApp(t)
		salary := testutil.CreateGlobalCategory(t, app.DB, "Salary", models.CategoryTypeIncome)
		tokenA, _ := app.registerUser(t, "a@test.com")
		tokenB, _ := app.registerUser(t, "b@test.com")
		gymA := app.createCategory(t, tokenA, "Gym", "expense")

		// Global income category accepts income but not expense.
		expect(t, app.createTransaction(tokenA, "income", "3000", salary.ID, "2024-03-01"), http.StatusCreated)
		rec := app.createTransaction(tokenA, "expense", "10", salary.ID, "2024-03-01")
		expect(t, rec, http.StatusBadRequest)
		if code := errorCode(t, rec); code != "CATEGORY_TYPE_MISMATCH" {
			t.Errorf("expected CATEGORY_TYPE_MISMATCH, got %s", code)
		}

		// Another user's category is visible to nobody else.
		rec = app.createTransaction(tokenB, "expense", "10", gymA, "2024-03-01")
		expect(t, rec, http.StatusForbidden)
		if code := errorCode(t, rec); code != "CATEGORY_NOT_OWNED" {
			t.Errorf("expected CATEGORY_NOT_OWNED, got %s", code)
		}
		expect(t, app.request("GET", "/api/v1/categories/"+gymA, "", tokenB), http.StatusNotFound)

		rec = app.createTransaction(tokenA, "expense", "10", "00000000-0000-7000-8000-000000000000", "2024-03-01")
		expect(t, rec, http.StatusNotFound)
		if code := errorCode(t, rec); code != "CATEGORY_NOT_FOUND" {
			t.Errorf("expected CATEGORY_NOT_FOUND, got %s", code)
		}

		// Listing shows globals plus own categories, by name.
		rec = app.request("GET", "/api/v1/categories", "", tokenB)
		expect(t, rec, http.StatusOK)
		if cats := parseJSON(t, rec)["categories"].([]interface{}); len(cats) != 1 {
			t.Errorf("expected only the global category for B, got %d", len(cats))
		}
	})

	t.Run("delete_rules", func(t *testing.T) {
		app := setupApp(t)
		salary := testutil.CreateGlobalCategory(t, app.DB, "Salary", models.CategoryTypeIncome)
		tokenA, _ := app.registerUser(t, "a@test.com")
		tokenB, _ := app.registerUser(t, "b@test.com")
		gymA := app.createCategory(t, tokenA, "Gym", "expense")

		rec := app.request("DELETE", "/api/v1/categories/"+salary.ID, "", tokenA)
		expect(t, rec, http.StatusForbidden)
		if code := errorCode(t, rec); code != "GLOBAL_CATEGORY_DELETE" {
			t.Errorf("expected GLOBAL_CATEGORY_DELETE, got %s", code)
		}

		rec = app.request("DELETE", "/api/v1/categories/"+gymA, "", tokenB)
		expect(t, rec, http.StatusForbidden)
		if code := errorCode(t, rec); code != "CATEGORY_NOT_OWNER" {
			t.Errorf("expected CATEGORY_NOT_OWNER, got %s", code)
		}

		rec = app.createTransaction(tokenA, "expense", "45", gymA, "2024-03-02")
		expect(t, rec, http.StatusCreated)
		txID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)

		rec = app.request("DELETE", "/api/v1/categories/"+gymA, "", tokenA)
		expect(t, rec, http.StatusConflict)
		if code := errorCode(t, rec); code != "CATEGORY_IN_USE" {
			t.Errorf("expected CATEGORY_IN_USE, got %s", code)
		}

		rec = app.request("DELETE", "/api/v1/transactions/"+txID, "", tokenA)
		expect(t, rec, http.StatusOK)
		deleted := parseJSON(t, rec)["deleted_transaction"].(map[string]interface{})
		if deleted["id"] != txID {
			t.Errorf("expected deleted transaction %s, got %v", txID, deleted["id"])
		}

		expect(t, app.request("DELETE", "/api/v1/categories/"+gymA, "", tokenA), http.StatusOK)
		expect(t, app.request("DELETE", "/api/v1/categories/"+gymA, "", tokenA), http.StatusNotFound)
	})

	t.Run("update_rules", func(t *testing.T) {
		app := setupApp(t)
		tokenA, _ := app.registerUser(t, "a@test.com")
		gym := app.createCategory(t, tokenA, "Gym", "expense")
		pay := app.createCategory(t, tokenA, "Pay", "income")

		rec := app.createTransaction(tokenA, "expense", "20", gym, "2024-03-03")
		expect(t, rec, http.StatusCreated)
		txID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)

		// Moving to an income category without changing type is rejected.
		rec = app.request("PUT", "/api/v1/transactions/"+txID, fmt.Sprintf(`{"category_id":%q}`, pay), tokenA)
		expect(t, rec, http.StatusBadRequest)

		// Changing both together is fine.
		rec = app.request("PUT", "/api/v1/transactions/"+txID,
			fmt.Sprintf(`{"category_id":%q,"type":"income","amount":25}`, pay), tokenA)
		expect(t, rec, http.StatusOK)
		tx := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if tx["type"] != "income" || tx["amount"] != float64(25) {
			t.Errorf("unexpected update result: %v", tx)
		}
		if cat := tx["category"].(map[string]interface{}); cat["name"] != "Pay" {
			t.Errorf("expected resolved category Pay, got %v", cat["name"])
		}

		// Global categories are not editable; own ones are.
		rec = app.request("PUT", "/api/v1/categories/"+gym, `{"name":"Fitness","budget_limit":100}`, tokenA)
		expect(t, rec, http.StatusOK)
		rec = app.request("PUT", "/api/v1/categories/"+pay, `{"name":"Fitness"}`, tokenA)
		expect(t, rec, http.StatusConflict)
	})
}

func TestListingAndSummaryFlow(t *testing.T) {
	app := setupApp(t)
	salary := testutil.CreateGlobalCategory(t, app.DB, "Salary", models.CategoryTypeIncome)
	token, _ := app.registerUser(t, "a@test.com")
	food := app.createCategory(t, token, "Food", "expense")
	rec := app.request("PUT", "/api/v1/categories/"+food, `{"budget_limit":200}`, token)
	expect(t, rec, http.StatusOK)

	expect(t, app.createTransaction(token, "income", "1000", salary.ID, "2024-01-15"), http.StatusCreated)
	expect(t, app.createTransaction(token, "expense", "100", food, "2024-01-20"), http.StatusCreated)
	expect(t, app.createTransaction(token, "expense", "150", food, "2024-02-03"), http.StatusCreated)

	t.Run("newest_first", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/transactions", "", token)
		expect(t, rec, http.StatusOK)
		txs := parseJSON(t, rec)["transactions"].([]interface{})
		if len(txs) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(txs))
		}
		if txs[0].(map[string]interface{})["amount"] != float64(150) {
			t.Errorf("expected newest transaction first, got %v", txs[0])
		}
	})

	t.Run("filters_and_pages", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/transactions?type=expense&to=2024-01-20", "", token)
		expect(t, rec, http.StatusOK)
		if txs := parseJSON(t, rec)["transactions"].([]interface{}); len(txs) != 1 {
			t.Errorf("expected 1 filtered transaction, got %d", len(txs))
		}

		rec = app.request("GET", "/api/v1/transactions?search=food&page=1&page_size=1", "", token)
		expect(t, rec, http.StatusOK)
		page := parseJSON(t, rec)
		if page["total_items"] != float64(2) || page["total_pages"] != float64(2) {
			t.Errorf("unexpected page metadata: %v", page)
		}
	})

	t.Run("summary", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/transactions/summary", "", token)
		expect(t, rec, http.StatusOK)
		summary := parseJSON(t, rec)["summary"].(map[string]interface{})
		if summary["total_income"] != float64(1000) || summary["total_expenses"] != float64(250) {
			t.Errorf("unexpected totals: %v", summary)
		}
		if summary["savings_rate"] != float64(75) {
			t.Errorf("expected savings rate 75, got %v", summary["savings_rate"])
		}
		cats := summary["categories"].([]interface{})
		if len(cats) != 1 || cats[0].(map[string]interface{})["budget_used_pct"] != float64(125) {
			t.Errorf("unexpected category breakdown: %v", cats)
		}
		if monthly := summary["monthly"].([]interface{}); len(monthly) != 2 {
			t.Errorf("expected 2 months, got %d", len(monthly))
		}
	})
}

func TestAccountDeletionCascade(t *testing.T) {
	app := setupApp(t)
	salary := testutil.CreateGlobalCategory(t, app.DB, "Salary", models.CategoryTypeIncome)
	tokenA, userA := app.registerUser(t, "a@test.com")
	tokenB, userB := app.registerUser(t, "b@test.com")
	gymA := app.createCategory(t, tokenA, "Gym", "expense")
	app.createCategory(t, tokenB, "Gym", "expense")

	expect(t, app.createTransaction(tokenA, "expense", "30", gymA, "2024-03-01"), http.StatusCreated)
	expect(t, app.createTransaction(tokenA, "income", "500", salary.ID, "2024-03-01"), http.StatusCreated)
	expect(t, app.createTransaction(tokenB, "income", "700", salary.ID, "2024-03-01"), http.StatusCreated)

	expect(t, app.request("DELETE", "/api/v1/profile", "", tokenA), http.StatusOK)

	count := func(model interface{}, query string, args ...interface{}) int64 {
		var n int64
		if err := app.DB.Model(model).Where(query, args...).Count(&n).Error; err != nil {
			t.Fatalf("count failed: %v", err)
		}
		return n
	}
	if n := count(&models.Transaction{}, "user_id = ?", userA); n != 0 {
		t.Errorf("expected A's transactions removed, found %d", n)
	}
	if n := count(&models.Category{}, "owner_id = ?", userA); n != 0 {
		t.Errorf("expected A's categories removed, found %d", n)
	}
	if n := count(&models.Transaction{}, "user_id = ?", userB); n != 1 {
		t.Errorf("expected B's transaction kept, found %d", n)
	}
	if n := count(&models.Category{}, "owner_id = ?", userB); n != 1 {
		t.Errorf("expected B's category kept, found %d", n)
	}
	if n := count(&models.Category{}, "id = ?", salary.ID); n != 1 {
		t.Error("expected global category kept")
	}

	// Tokens outlive the account, but the account is gone.
	expect(t, app.request("GET", "/api/v1/profile", "", tokenA), http.StatusNotFound)
}
