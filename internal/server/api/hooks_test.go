package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/gesturetree/internal/hook"
)

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, hook.ManifestFile), []byte(body), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestHookHandler_List(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "lights", `{"name":"lights","version":"1.0.0","executable":"run.sh","modes":["FORMED"]}`)

	m := hook.NewManager(dir)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	handler := NewHookHandler(m)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hooks", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response listHooksResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Dir != dir {
		t.Errorf("expected dir %s, got %s", dir, response.Dir)
	}
	if len(response.Hooks) != 1 || response.Hooks[0].Name != "lights" {
		t.Fatalf("unexpected hooks %+v", response.Hooks)
	}
	if len(response.Hooks[0].Modes) != 1 || response.Hooks[0].Modes[0] != "FORMED" {
		t.Errorf("unexpected modes %v", response.Hooks[0].Modes)
	}
}

func TestHookHandler_Reload(t *testing.T) {
	dir := t.TempDir()
	m := hook.NewManager(dir)
	handler := NewHookHandler(m)

	writeManifest(t, dir, "chime", `{"name":"chime","executable":"run.sh"}`)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/hooks/reload", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response listHooksResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Hooks) != 1 || response.Hooks[0].Name != "chime" {
		t.Fatalf("expected reloaded chime hook, got %+v", response.Hooks)
	}
	if response.Hooks[0].Modes == nil {
		t.Error("expected modes to encode as an empty list")
	}
}

func TestHookHandler_Methods(t *testing.T) {
	handler := NewHookHandler(hook.NewManager(t.TempDir()))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/hooks", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/hooks/reload", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/hooks/other", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, rec.Code)
		}
	}
}
