package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"storyhub/pkg/models"
)

// CSVColumns is the header written by WriteCSV. CSVSource only needs the
// columns it finds; order does not matter.
var CSVColumns = []string{
	"type", "url", "img", "title", "author", "recommend", "rating", "genre", "serial",
	"publisher", "summary", "page_count", "page_unit", "age", "platform", "keywords", "viewers",
}

// CSVSource reads a spreadsheet export with a header row. Rows without a type
// column value fall back to Kind.
type CSVSource struct {
	Path string
	Kind models.Kind
}

func (s *CSVSource) Name() string { return "csv:" + s.Path }

func (s *CSVSource) FetchAll(ctx context.Context) ([]Item, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f, s.Kind)
}

// ReadCSV decodes rows keyed by header name. Blank lines are skipped.
func ReadCSV(ctx context.Context, r io.Reader, kind models.Kind) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var items []Item
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		it, err := rowItem(header, row, kind)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	cols, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header")
		}
		return nil, err
	}
	header := make(map[string]int, len(cols))
	for i, c := range cols {
		c = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		header[c] = i
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowItem(header map[string]int, row []string, kind models.Kind) (Item, error) {
	it := Item{Kind: kind}
	if t := valueAt(header, row, "type"); t != "" {
		k, ok := models.ParseKind(t)
		if !ok {
			return Item{}, fmt.Errorf("invalid type %q", t)
		}
		it.Kind = k
	}
	if it.Kind == "" {
		return Item{}, errors.New("missing type")
	}

	get := func(key string) string { return valueAt(header, row, key) }
	rec := Record{
		URL:       get("url"),
		Img:       get("img"),
		Title:     get("title"),
		Author:    get("author"),
		Genre:     get("genre"),
		Serial:    get("serial"),
		Publisher: get("publisher"),
		Summary:   get("summary"),
		PageUnit:  get("page_unit"),
		Age:       get("age"),
		Platform:  get("platform"),
		Keywords:  Keywords(models.DecodeTags(get("keywords"))),
	}

	var err error
	if rec.Recommend, err = ParseCount(get("recommend")); err != nil {
		return Item{}, fmt.Errorf("recommend: %w", err)
	}
	if rec.PageCount, err = ParseCount(get("page_count")); err != nil {
		return Item{}, fmt.Errorf("page_count: %w", err)
	}
	if rec.Viewers, err = ParseCount(get("viewers")); err != nil {
		return Item{}, fmt.Errorf("viewers: %w", err)
	}
	if rec.Rating, err = ParseScore(get("rating")); err != nil {
		return Item{}, err
	}
	it.Record = rec
	return it, nil
}

// FromContent turns a catalog entry back into the record a crawler would send,
// so exports can be re-imported unchanged.
func FromContent(m models.ContentItem) Item {
	return Item{
		Kind: m.Type,
		Record: Record{
			URL:       m.SiteURL,
			Img:       m.CoverImage,
			Title:     m.Title,
			Author:    m.Author,
			Recommend: Count(m.Recommend),
			Rating:    Score(m.Rating),
			Genre:     m.Genre,
			Serial:    m.Serial,
			Publisher: m.Publisher,
			Summary:   m.Description,
			PageCount: Count(m.Episodes),
			PageUnit:  m.EpisodeUnit,
			Age:       m.AgeRating,
			Platform:  m.Platform,
			Keywords:  Keywords(m.Tags),
			Viewers:   Count(m.Views),
		},
	}
}

// WriteCSV writes items under CSVColumns. Keywords are written as a JSON array
// so tags containing spaces survive a round trip.
func WriteCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	for _, it := range items {
		r := it.Record
		row := []string{
			string(it.Kind), r.URL, r.Img, r.Title, r.Author,
			strconv.FormatInt(int64(r.Recommend), 10),
			strconv.FormatFloat(float64(r.Rating), 'f', -1, 64),
			r.Genre, r.Serial, r.Publisher, r.Summary,
			strconv.FormatInt(int64(r.PageCount), 10),
			r.PageUnit, r.Age, r.Platform,
			models.EncodeTags(r.Keywords),
			strconv.FormatInt(int64(r.Viewers), 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes items as the {type, data} array FileSource and FeedSource read.
func WriteJSON(w io.Writer, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
