package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"storyhub/pkg/models"
)

type staticSource struct {
	name  string
	items []Item
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) FetchAll(context.Context) ([]Item, error) { return s.items, s.err }

func TestFetchAndMerge(t *testing.T) {
	a := staticSource{name: "a", items: []Item{
		{Kind: models.KindNovel, Record: Record{URL: "https://a/1", Title: "전지적 독자 시점", Viewers: 10, Keywords: Keywords{"판타지"}}},
		{Kind: models.KindWebtoon, Record: Record{URL: "https://a/2", Title: "전지적 독자 시점"}},
	}}
	b := staticSource{name: "b", items: []Item{
		// same url, richer data
		{Kind: models.KindNovel, Record: Record{URL: "https://a/1", Title: "ignored", Author: "싱숑", Viewers: 99, Rating: 4.8, Keywords: Keywords{"판타지", "회귀"}, Summary: "longer summary"}},
		// same title, different punctuation
		{Kind: models.KindWebtoon, Record: Record{URL: "https://b/9", Title: "전지적  독자 시점!", Genre: "액션"}},
		{Kind: models.KindNovel, Record: Record{URL: "https://b/3", Title: "다른 작품"}},
	}}
	broken := staticSource{name: "broken", err: errors.New("connection refused")}

	items, err := NewAggregator(a, broken, b).FetchAndMerge(context.Background())
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items: %+v", len(items), items)
	}

	novel := items[0].Record
	if novel.Title != "전지적 독자 시점" || novel.Author != "싱숑" || novel.Viewers != 99 || novel.Rating != 4.8 {
		t.Fatalf("novel merge = %+v", novel)
	}
	if !reflect.DeepEqual([]string(novel.Keywords), []string{"판타지", "회귀"}) {
		t.Fatalf("keywords = %v", novel.Keywords)
	}
	if novel.Summary != "longer summary" {
		t.Fatalf("summary = %q", novel.Summary)
	}

	webtoon := items[1]
	if webtoon.Kind != models.KindWebtoon || webtoon.Record.URL != "https://a/2" || webtoon.Record.Genre != "액션" {
		t.Fatalf("webtoon merge = %+v", webtoon)
	}
	if items[2].Record.Title != "다른 작품" {
		t.Fatalf("order not kept: %+v", items[2])
	}
}

func TestFetchAndMergeEmptyKeys(t *testing.T) {
	src := staticSource{name: "a", items: []Item{
		{Kind: models.KindNovel, Record: Record{Title: "하나"}},
		{Kind: models.KindNovel, Record: Record{Title: "둘"}},
		{Kind: models.KindNovel, Record: Record{URL: "https://x/1"}},
		{Kind: models.KindNovel, Record: Record{URL: "https://x/2"}},
	}}
	items, err := NewAggregator(src).FetchAndMerge(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("records without url or title must not merge, got %d", len(items))
	}
}

func TestFetchAndMergeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAggregator(staticSource{name: "a"}).FetchAndMerge(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"Solo Leveling":       "solo leveling",
		"  Solo-Leveling!! ":  "solo leveling",
		"나 혼자만 레벨업 (웹툰)": "나 혼자만 레벨업 웹툰",
		"???":                 "",
	}
	for in, want := range tests {
		if got := normalizeKey(in); got != want {
			t.Errorf("normalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	envelopes := filepath.Join(dir, "mixed.json")
	writeFile(t, envelopes, `[
		{"type": "novel", "data": {"url": "https://n/1", "title": "소설", "viewers": "1,000"}},
		{"type": "webtoon", "data": {"url": "https://w/1", "title": "웹툰", "keywords": "#액션 #무협"}}
	]`)
	items, err := (&FileSource{Path: envelopes}).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("envelopes: %v", err)
	}
	if len(items) != 2 || items[0].Kind != models.KindNovel || items[0].Record.Viewers != 1000 {
		t.Fatalf("items = %+v", items)
	}
	if items[1].Kind != models.KindWebtoon || len(items[1].Record.Keywords) != 2 {
		t.Fatalf("webtoon = %+v", items[1])
	}

	bare := filepath.Join(dir, "novels.json")
	writeFile(t, bare, `[{"url": "https://n/2", "title": "bare"}]`)
	items, err = (&FileSource{Path: bare, Kind: models.KindNovel}).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	if len(items) != 1 || items[0].Kind != models.KindNovel || items[0].Record.Title != "bare" {
		t.Fatalf("items = %+v", items)
	}

	if _, err := (&FileSource{Path: bare}).FetchAll(context.Background()); err == nil {
		t.Fatal("bare records need a kind")
	}

	badType := filepath.Join(dir, "bad.json")
	writeFile(t, badType, `[{"type": "comic", "data": {"url": "https://c/1"}}]`)
	if _, err := (&FileSource{Path: badType}).FetchAll(context.Background()); err == nil || !strings.Contains(err.Error(), "invalid type") {
		t.Fatalf("err = %v", err)
	}

	if _, err := (&FileSource{Path: filepath.Join(dir, "missing.json")}).FetchAll(context.Background()); err == nil {
		t.Fatal("missing file must fail")
	}
}

func TestFeedSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"url": "https://w/7", "title": "피드", "rating": "4.1"}]`))
	}))
	defer srv.Close()

	items, err := NewFeedSource(srv.URL+"/webtoons", models.KindWebtoon).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].Kind != models.KindWebtoon || items[0].Record.Rating != 4.1 {
		t.Fatalf("items = %+v", items)
	}

	_, err = NewFeedSource(srv.URL+"/broken", models.KindWebtoon).FetchAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("err = %v", err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}
