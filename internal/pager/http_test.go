package pager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storyhub/internal/content"
	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contents" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("type") != "novel" || q.Get("limit") != "30" || q.Get("offset") != "30" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]models.ContentItem{{ID: 61, Type: models.KindNovel, Title: "solo"}})
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/", "tok")
	items, err := f.Fetch(context.Background(), content.Filter{Kind: content.KindNovel, Limit: 30, Offset: 30})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != 61 || items[0].Title != "solo" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestHTTPFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"limit: must be a positive integer","field":"limit"}`))
	}))

	f := NewHTTPFetcher(srv.URL, "")
	_, err := f.Fetch(context.Background(), content.Filter{})
	if !domain.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	ne := err.(*domain.NetworkError)
	if ne.Status != http.StatusBadRequest || ne.Err.Error() != "limit: must be a positive integer" {
		t.Fatalf("unexpected error %+v", ne)
	}

	srv.Close()
	_, err = f.Fetch(context.Background(), content.Filter{})
	if !domain.IsNetwork(err) {
		t.Fatalf("expected network error after close, got %v", err)
	}
	if err.(*domain.NetworkError).Status != 0 {
		t.Fatal("unreachable server has no status")
	}
}

func TestClientOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := content.ParseFilter(r.URL.Query())
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var page []models.ContentItem
		for i := f.Offset; i < f.Offset+f.Limit && i < 40; i++ {
			page = append(page, models.ContentItem{ID: int64(i)})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	c := New(NewHTTPFetcher(srv.URL, ""))
	c.SetFilter(content.Filter{SortBy: content.SortNewest})
	c.Wait()
	c.LoadMore()
	c.Wait()

	snap := c.Snapshot()
	if len(snap.Items) != 40 || snap.HasMore || snap.State != Ready {
		t.Fatalf("items %d, more %v, state %s", len(snap.Items), snap.HasMore, snap.State)
	}
}
