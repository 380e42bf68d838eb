package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorlau/liuren-quota/internal/billing"
	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/store"
)

func newAdminRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := ledger.New(store.NewMemoryStore())
	handler := NewCodeHandler(svc, billing.DefaultTable())

	router := gin.New()
	router.POST("/api/admin/codes", handler.Create)
	router.POST("/api/admin/codes/add-quota", handler.AddQuota)
	router.GET("/api/admin/codes", handler.List)
	return router
}

func adminPost(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(responseRecorder, req)
	return responseRecorder
}

type issuedPayload struct {
	Code            string     `json:"code"`
	Quota           int        `json:"quota"`
	DefaultPassword string     `json:"default_password"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

func TestCreateCodeByPlan(t *testing.T) {
	router := newAdminRouter(t)

	responseRecorder := adminPost(t, router, "/api/admin/codes", map[string]any{
		"plan": "triple", "phone": "85291234567",
	})
	if responseRecorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
	}
	var payload issuedPayload
	if err := json.Unmarshal(responseRecorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Quota != 5 {
		t.Fatalf("expected plan triple to grant 5 uses, got %d", payload.Quota)
	}
	if payload.DefaultPassword != "234567" {
		t.Fatalf("expected default password from phone suffix, got %q", payload.DefaultPassword)
	}
	if payload.ExpiresAt != nil {
		t.Fatal("admin-issued codes without expiry_days must not expire")
	}
}

func TestCreateCodeExplicitQuotaAndExpiry(t *testing.T) {
	router := newAdminRouter(t)

	responseRecorder := adminPost(t, router, "/api/admin/codes", map[string]any{
		"quota": 7, "phone": "85291234567", "expiry_days": 30,
	})
	if responseRecorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
	}
	var payload issuedPayload
	if err := json.Unmarshal(responseRecorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Quota != 7 {
		t.Fatalf("expected quota 7, got %d", payload.Quota)
	}
	if payload.ExpiresAt == nil {
		t.Fatal("expected an expiry timestamp")
	}
}

func TestCreateCodeRejectsBadInput(t *testing.T) {
	router := newAdminRouter(t)

	cases := []map[string]any{
		{"plan": "deluxe"},
		{"quota": 0},
		{"quota": -3},
		{"quota": 1, "expiry_days": -1},
	}
	for _, body := range cases {
		responseRecorder := adminPost(t, router, "/api/admin/codes", body)
		if responseRecorder.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400 for %v, got %d", body, responseRecorder.Code)
		}
	}
}

func TestAddQuotaEndpoint(t *testing.T) {
	router := newAdminRouter(t)

	created := adminPost(t, router, "/api/admin/codes", map[string]any{"quota": 2, "phone": "85291234567"})
	var payload issuedPayload
	if err := json.Unmarshal(created.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	responseRecorder := adminPost(t, router, "/api/admin/codes/add-quota", map[string]any{
		"code": payload.Code, "additional_uses": 3,
	})
	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
	}
	var topup struct {
		NewTotal  int `json:"new_total"`
		Remaining int `json:"remaining"`
	}
	if err := json.Unmarshal(responseRecorder.Body.Bytes(), &topup); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if topup.NewTotal != 5 || topup.Remaining != 5 {
		t.Fatalf("expected total=5 remaining=5, got %+v", topup)
	}

	responseRecorder = adminPost(t, router, "/api/admin/codes/add-quota", map[string]any{
		"code": "LR-ZZZZ-WWWW", "additional_uses": 3,
	})
	if responseRecorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for an unknown code, got %d", responseRecorder.Code)
	}
}

func TestListCodesEndpoint(t *testing.T) {
	router := newAdminRouter(t)

	for i := 0; i < 3; i++ {
		if rec := adminPost(t, router, "/api/admin/codes", map[string]any{"quota": 1, "phone": "85291234567"}); rec.Code != http.StatusCreated {
			t.Fatalf("seed issue failed: %d", rec.Code)
		}
	}

	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/codes", nil)
	router.ServeHTTP(responseRecorder, req)
	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", responseRecorder.Code)
	}
	var payload struct {
		Count int `json:"count"`
		Codes []struct {
			Code    string `json:"code"`
			Contact string `json:"contact"`
		} `json:"codes"`
	}
	if err := json.Unmarshal(responseRecorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Count != 3 || len(payload.Codes) != 3 {
		t.Fatalf("expected 3 codes, got count=%d len=%d", payload.Count, len(payload.Codes))
	}
	for _, item := range payload.Codes {
		if item.Contact == "85291234567" {
			t.Fatal("listing must mask contacts")
		}
	}
}
