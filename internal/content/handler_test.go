package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storyhub/internal/auth"
	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

type fakeBlocks struct {
	list Blocklist
	err  error
	user string
}

func (b *fakeBlocks) Blocklist(_ context.Context, userID string) (Blocklist, error) {
	b.user = userID
	return b.list, b.err
}

var testTokens = auth.TokenService{Secret: []byte("handler-secret"), Issuer: "storyhub", Duration: time.Hour}

func newTestRouter(store Store, blocks BlocklistSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(NewService(store), blocks)
	h.RegisterRoutes(r.Group("/contents", auth.OptionalAuth(testTokens)))
	return r
}

func do(r http.Handler, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListHandler(t *testing.T) {
	store := &fakeStore{items: makeItems(3)}
	r := newTestRouter(store, nil)

	w := do(r, "/contents?limit=2&sortBy=rating", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var items []models.ContentItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body is not an array: %v", err)
	}
	if len(items) != 2 || w.Header().Get("X-Has-More") != "true" {
		t.Fatalf("got %d items, has more %q", len(items), w.Header().Get("X-Has-More"))
	}
	if store.last.SortBy != SortRating || store.last.Limit != 2 {
		t.Fatalf("filter not forwarded: %+v", store.last)
	}
}

func TestListHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
		field  string
	}{
		{"bad type", "/contents?type=comic", nil, http.StatusBadRequest, "type"},
		{"bad limit", "/contents?limit=abc", nil, http.StatusBadRequest, "limit"},
		{"bad range", "/contents?minViewers=10&maxViewers=1", nil, http.StatusBadRequest, "minViewers"},
		{"storage", "/contents", domain.Storage("list query", errors.New("no such table: novels")), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.err}
			w := do(newTestRouter(store, nil), tt.target, "")
			if w.Code != tt.status {
				t.Fatalf("status %d, want %d", w.Code, tt.status)
			}

			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["error"] == "" {
				t.Fatalf("missing error message: %v", body)
			}
			if tt.field != "" {
				if body["field"] != tt.field {
					t.Fatalf("field = %q, want %q", body["field"], tt.field)
				}
				if store.calls != 0 {
					t.Fatal("validation failure reached storage")
				}
			}
			if tt.status == http.StatusInternalServerError && body["details"] != "list query" {
				t.Fatalf("500 details = %q, want the failing op only", body["details"])
			}
		})
	}
}

func TestListHandlerMergesStoredBlocks(t *testing.T) {
	store := &fakeStore{items: makeItems(1)}
	blocks := &fakeBlocks{list: Blocklist{Genres: []string{"BL"}, Tags: []string{"피폐"}, ShowAdultContent: true}}
	r := newTestRouter(store, blocks)

	unverified, _, err := testTokens.Sign(auth.Subject{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	w := do(r, "/contents?blockedGenres=horror&showAdultContent=true", unverified)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if blocks.user != "u1" {
		t.Fatalf("blocks loaded for %q", blocks.user)
	}
	if want := []string{"horror", "BL"}; !reflect.DeepEqual(store.last.BlockedGenres, want) {
		t.Fatalf("genres = %v, want %v", store.last.BlockedGenres, want)
	}
	if store.last.ShowAdultContent {
		t.Fatal("adult content needs a verified token")
	}

	verified, _, _ := testTokens.Sign(auth.Subject{UserID: "u1", AdultVerified: true})
	do(r, "/contents?showAdultContent=true", verified)
	if !store.last.ShowAdultContent {
		t.Fatal("verified user with stored preference should see adult content")
	}

	do(r, "/contents", verified)
	if store.last.ShowAdultContent {
		t.Fatal("request flag is still required")
	}

	if w := do(r, "/contents", "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", w.Code)
	}
}

func TestGetHandlerAppliesStoredBlocks(t *testing.T) {
	store := &fakeStore{byLocal: map[int64]models.ContentItem{
		1: {ID: 3, LocalID: 1, Type: models.KindNovel, Genre: "Horror", Tags: []string{}},
		2: {ID: 5, LocalID: 2, Type: models.KindNovel, Genre: "drama", Tags: []string{"Ünder"}},
		3: {ID: 7, LocalID: 3, Type: models.KindNovel, Genre: "drama", Tags: []string{"slice"}},
	}}
	blocks := &fakeBlocks{list: Blocklist{Genres: []string{"horror"}, Tags: []string{"ünder"}}}
	r := newTestRouter(store, blocks)

	tok, _, err := testTokens.Sign(auth.Subject{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		target string
		token  string
		status int
	}{
		{"/contents/novel/1", tok, http.StatusNotFound},
		{"/contents/novel/2", tok, http.StatusNotFound},
		{"/contents/novel/3", tok, http.StatusOK},
		{"/contents/novel/1", "", http.StatusOK},
		{"/contents/novel/2", "", http.StatusOK},
	}
	for _, tt := range tests {
		if w := do(r, tt.target, tt.token); w.Code != tt.status {
			t.Errorf("%s (signed in %v): status %d, want %d", tt.target, tt.token != "", w.Code, tt.status)
		}
	}
}

func TestGetHandler(t *testing.T) {
	store := &fakeStore{byLocal: map[int64]models.ContentItem{
		7: {ID: 15, LocalID: 7, Type: models.KindNovel, Title: "solo", Tags: []string{}},
		8: {ID: 17, LocalID: 8, Type: models.KindNovel, AgeRating: "성인", Tags: []string{}},
	}}
	r := newTestRouter(store, nil)

	tests := []struct {
		target string
		status int
	}{
		{"/contents/novel/7", http.StatusOK},
		{"/contents/webtoon/7", http.StatusNotFound},
		{"/contents/comic/7", http.StatusBadRequest},
		{"/contents/novel/x", http.StatusBadRequest},
		{"/contents/novel/8", http.StatusNotFound},
		{"/contents/novel/8?showAdultContent=true", http.StatusOK},
	}
	for _, tt := range tests {
		if w := do(r, tt.target, ""); w.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.target, w.Code, tt.status)
		}
	}
}
