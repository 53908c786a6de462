package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"storyhub/internal/ingest"
	"storyhub/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	newRouter(path).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feed", nil))
	return w
}

func TestFeedServesCSVAsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	csv := "type,url,title,viewers\nnovel,https://n/1,소설,\"2,000\"\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	w := get(t, path)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var items []ingest.Item
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Kind != models.KindNovel || items[0].Record.Viewers != 2000 {
		t.Fatalf("items = %+v", items)
	}
}

func TestFeedRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(`{"not": "an array"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if w := get(t, path); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if w := get(t, filepath.Join(t.TempDir(), "missing.json")); w.Code != http.StatusInternalServerError {
		t.Fatalf("missing file status = %d", w.Code)
	}
}
