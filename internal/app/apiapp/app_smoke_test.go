package apiapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/relun/backend/internal/config"
)

func TestNewServesHealthzWithMemoryStorage(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = ":0"
	cfg.Redis.Enabled = false

	app, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Shutdown(ctx)
	}()

	ts := httptest.NewServer(app.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload struct {
		OK      bool   `json:"ok"`
		Storage string `json:"storage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.OK || payload.Storage != "memory" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestNewRequiresLogger(t *testing.T) {
	if _, err := New(context.Background(), config.Default(), nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}
