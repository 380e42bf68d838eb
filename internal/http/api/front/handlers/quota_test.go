package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/models"
	"github.com/victorlau/liuren-quota/internal/store"
)

func newQuotaRouter(t *testing.T) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	memory := store.NewMemoryStore()
	handler := NewQuotaHandler(ledger.New(memory))

	router := gin.New()
	router.POST("/api/check-quota", handler.Check)
	router.POST("/api/use-quota", handler.Use)
	router.POST("/api/update-password", handler.UpdatePassword)
	return router, memory
}

func seedCode(t *testing.T, memory *store.MemoryStore, code, password string, total, used int, expiresAt *time.Time) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	record := &models.AccessCodeRecord{
		Code:         code,
		PasswordHash: string(hash),
		TotalUses:    total,
		UsedCount:    used,
		OwnerContact: "85291234567",
		CreatedAt:    time.Now().UTC(),
		ExpiresAt:    expiresAt,
	}
	if created, errPut := memory.PutIfAbsent(context.Background(), record, 0); errPut != nil || !created {
		t.Fatalf("seed failed: created=%v err=%v", created, errPut)
	}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
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

func TestCheckQuotaEndpoint(t *testing.T) {
	router, memory := newQuotaRouter(t)
	seedCode(t, memory, "LR-AB3D-7F2K", "234567", 5, 2, nil)

	responseRecorder := postJSON(t, router, "/api/check-quota", map[string]string{
		"code": "lr-ab3d-7f2k", "password": "234567",
	})
	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
	}

	var payload struct {
		Remaining int    `json:"remaining"`
		Total     int    `json:"total"`
		Used      int    `json:"used"`
		Contact   string `json:"contact"`
	}
	if err := json.Unmarshal(responseRecorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Remaining != 3 || payload.Total != 5 || payload.Used != 2 {
		t.Fatalf("unexpected balance payload: %+v", payload)
	}
	if payload.Contact == "85291234567" {
		t.Fatal("contact must be masked")
	}
}

func TestCheckQuotaStatuses(t *testing.T) {
	router, memory := newQuotaRouter(t)
	past := time.Now().UTC().Add(-time.Second)
	seedCode(t, memory, "LR-AB3D-7F2K", "234567", 5, 0, nil)
	seedCode(t, memory, "LR-EXPQ-WXYZ", "234567", 5, 0, &past)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{"bad format", map[string]string{"code": "nope", "password": "234567"}, http.StatusBadRequest},
		{"missing password", map[string]string{"code": "LR-AB3D-7F2K"}, http.StatusBadRequest},
		{"wrong password", map[string]string{"code": "LR-AB3D-7F2K", "password": "999999"}, http.StatusForbidden},
		{"unknown code", map[string]string{"code": "LR-ZZZZ-WWWW", "password": "234567"}, http.StatusNotFound},
		{"expired code", map[string]string{"code": "LR-EXPQ-WXYZ", "password": "234567"}, http.StatusGone},
	}
	for _, tc := range cases {
		responseRecorder := postJSON(t, router, "/api/check-quota", tc.body)
		if responseRecorder.Code != tc.want {
			t.Fatalf("%s: expected status %d, got %d body=%s", tc.name, tc.want, responseRecorder.Code, responseRecorder.Body.String())
		}
	}
}

func TestUseQuotaEndpoint(t *testing.T) {
	router, memory := newQuotaRouter(t)
	seedCode(t, memory, "LR-AB3D-7F2K", "234567", 2, 0, nil)

	for want := 1; want >= 0; want-- {
		responseRecorder := postJSON(t, router, "/api/use-quota", map[string]string{
			"code": "LR-AB3D-7F2K", "password": "234567",
		})
		if responseRecorder.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
		}
		var payload struct {
			Remaining int `json:"remaining"`
		}
		if err := json.Unmarshal(responseRecorder.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload.Remaining != want {
			t.Fatalf("expected remaining=%d, got %d", want, payload.Remaining)
		}
	}

	responseRecorder := postJSON(t, router, "/api/use-quota", map[string]string{
		"code": "LR-AB3D-7F2K", "password": "234567",
	})
	if responseRecorder.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 once exhausted, got %d", responseRecorder.Code)
	}
}

func TestUpdatePasswordEndpoint(t *testing.T) {
	router, memory := newQuotaRouter(t)
	seedCode(t, memory, "LR-AB3D-7F2K", "234567", 2, 0, nil)

	responseRecorder := postJSON(t, router, "/api/update-password", map[string]string{
		"code": "LR-AB3D-7F2K", "old_password": "234567", "new_password": "765432",
	})
	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", responseRecorder.Code, responseRecorder.Body.String())
	}

	responseRecorder = postJSON(t, router, "/api/check-quota", map[string]string{
		"code": "LR-AB3D-7F2K", "password": "765432",
	})
	if responseRecorder.Code != http.StatusOK {
		t.Fatalf("expected new password to verify, got %d", responseRecorder.Code)
	}

	responseRecorder = postJSON(t, router, "/api/update-password", map[string]string{
		"code": "LR-AB3D-7F2K", "old_password": "765432", "new_password": "short",
	})
	if responseRecorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a malformed new password, got %d", responseRecorder.Code)
	}
}

func TestConcurrentUseOverHTTP(t *testing.T) {
	router, memory := newQuotaRouter(t)
	seedCode(t, memory, "LR-AB3D-7F2K", "234567", 3, 0, nil)

	body := []byte(`{"code":"LR-AB3D-7F2K","password":"234567"}`)
	const requests = 10
	results := make(chan int, requests)
	for i := 0; i < requests; i++ {
		go func() {
			responseRecorder := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/use-quota", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(responseRecorder, req)
			results <- responseRecorder.Code
		}()
	}

	successes := 0
	for i := 0; i < requests; i++ {
		if code := <-results; code == http.StatusOK {
			successes++
		} else if code != http.StatusForbidden && code != http.StatusConflict {
			t.Fatalf("unexpected status %d", code)
		}
	}
	if successes != 3 {
		t.Fatalf("expected exactly 3 successful uses, got %d", successes)
	}
}
