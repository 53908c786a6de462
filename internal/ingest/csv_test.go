package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"storyhub/pkg/models"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffTitle,url,type,viewers,rating,keywords,page_count,page_unit\n" +
		`전지적 독자 시점,https://n/1,novel,"1,234",4.8,#회귀 #먼치킨,551,화` + "\n" +
		"\n" +
		"나 혼자만 레벨업,https://w/1,,200,,,,\n"

	items, err := ReadCSV(context.Background(), strings.NewReader(in), models.KindWebtoon)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}

	n := items[0]
	if n.Kind != models.KindNovel || n.Record.Title != "전지적 독자 시점" || n.Record.Viewers != 1234 || n.Record.Rating != 4.8 {
		t.Fatalf("novel = %+v", n)
	}
	if !reflect.DeepEqual([]string(n.Record.Keywords), []string{"회귀", "먼치킨"}) || n.Record.PageCount != 551 {
		t.Fatalf("novel record = %+v", n.Record)
	}
	if w := items[1]; w.Kind != models.KindWebtoon || w.Record.Viewers != 200 || len(w.Record.Keywords) != 0 {
		t.Fatalf("webtoon = %+v", w)
	}
}

func TestReadCSVRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind models.Kind
		want string
	}{
		{"empty", "", "", "missing header"},
		{"no kind", "url,title\nhttps://w/1,x\n", "", "line 2: missing type"},
		{"bad type", "type,url\ncomic,https://w/1\n", "", `invalid type "comic"`},
		{"bad count", "url,viewers\nhttps://w/1,many\n", models.KindWebtoon, "viewers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.in), tt.kind)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv")}
	if _, err := src.FetchAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(src.Name(), "csv:") {
		t.Fatalf("name = %q", src.Name())
	}
}

func TestExportRoundTrip(t *testing.T) {
	items := []Item{
		FromContent(models.ContentItem{
			Type: models.KindNovel, Title: "소설, 제목", SiteURL: "https://n/1", Tags: []string{"로맨스 판타지", "BL"},
			Views: 10, Rating: 4.5, Episodes: 120, EpisodeUnit: "화", Description: "줄1\n줄2",
		}),
		FromContent(models.ContentItem{Type: models.KindWebtoon, Title: "웹툰", SiteURL: "https://w/1"}),
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, items); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	fromCSV, err := ReadCSV(context.Background(), &csvBuf, "")
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	var jsonBuf bytes.Buffer
	if err := WriteJSON(&jsonBuf, items); err != nil {
		t.Fatalf("write json: %v", err)
	}
	fromJSON, err := decodeItems(&jsonBuf, "")
	if err != nil {
		t.Fatalf("read json: %v", err)
	}

	for name, got := range map[string][]Item{"csv": fromCSV, "json": fromJSON} {
		if len(got) != 2 {
			t.Fatalf("%s: items = %+v", name, got)
		}
		r := got[0].Record
		if got[0].Kind != models.KindNovel || r.Title != "소설, 제목" || r.Summary != "줄1\n줄2" || r.PageCount != 120 || r.Viewers != 10 {
			t.Fatalf("%s: record = %+v", name, r)
		}
		if !reflect.DeepEqual([]string(r.Keywords), []string{"로맨스 판타지", "BL"}) {
			t.Fatalf("%s: keywords = %q", name, r.Keywords)
		}
		if got[1].Kind != models.KindWebtoon || got[1].Record.URL != "https://w/1" {
			t.Fatalf("%s: webtoon = %+v", name, got[1])
		}
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil || out == nil || len(out) != 0 {
		t.Fatalf("output = %q", buf.String())
	}
}
