package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHealthHandler_Check(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler("1.2.3", "badger", true).Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "healthy" || health.Version != "1.2.3" || health.Storage != "badger" {
		t.Errorf("unexpected health payload: %+v", health)
	}
	if !health.Audit.Enabled {
		t.Error("expected audit to be reported as enabled")
	}
	if health.System.Goroutines == 0 {
		t.Error("expected goroutine count")
	}
}
