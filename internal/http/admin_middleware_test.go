package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victorlau/liuren-quota/internal/security"
)

func runAdminRequest(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AdminAuthMiddleware("admin-secret", "jwt-secret"))
	router.GET("/probe", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(responseRecorder, req)
	return responseRecorder
}

func TestAdminAuthMiddlewareMissingCredentials(t *testing.T) {
	responseRecorder := runAdminRequest(t, "")
	if responseRecorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", responseRecorder.Code)
	}
}

func TestAdminAuthMiddlewareAcceptsSecret(t *testing.T) {
	responseRecorder := runAdminRequest(t, "Bearer admin-secret")
	if responseRecorder.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", responseRecorder.Code)
	}
}

func TestAdminAuthMiddlewareAcceptsJWT(t *testing.T) {
	token, err := security.GenerateAdminToken("jwt-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	responseRecorder := runAdminRequest(t, "Bearer "+token)
	if responseRecorder.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", responseRecorder.Code)
	}
}

func TestAdminAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	responseRecorder := runAdminRequest(t, "Bearer not-the-secret")
	if responseRecorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", responseRecorder.Code)
	}
}

func TestAdminAuthMiddlewareRejectsForeignJWT(t *testing.T) {
	token, err := security.GenerateAdminToken("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	responseRecorder := runAdminRequest(t, "Bearer "+token)
	if responseRecorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", responseRecorder.Code)
	}
}
