package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"storyhub/pkg/models"
)

// Record is one crawled catalog entry as producers send it. Field names follow
// the storage columns.
type Record struct {
	URL       string   `json:"url" validate:"required,url,max=255"`
	Img       string   `json:"img" validate:"omitempty,max=255"`
	Title     string   `json:"title" validate:"required,max=255"`
	Author    string   `json:"author" validate:"max=255"`
	Recommend Count    `json:"recommend" validate:"gte=0"`
	Rating    Score    `json:"rating" validate:"gte=0,lte=5"`
	Genre     string   `json:"genre" validate:"max=255"`
	Serial    string   `json:"serial" validate:"max=255"`
	Publisher string   `json:"publisher" validate:"max=255"`
	Summary   string   `json:"summary"`
	PageCount Count    `json:"page_count" validate:"gte=0"`
	PageUnit  string   `json:"page_unit" validate:"max=10"`
	Age       string   `json:"age" validate:"max=32"`
	Platform  string   `json:"platform" validate:"max=255"`
	Keywords  Keywords `json:"keywords"`
	Viewers   Count    `json:"viewers" validate:"gte=0"`
}

// Item is a record tagged with the table it belongs to.
type Item struct {
	Kind   models.Kind `json:"type"`
	Record Record      `json:"data"`
}

// Count is a non-fractional counter. Crawlers send it as a number or as display
// text such as "1,234".
type Count int64

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}

	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	n, err := ParseCount(s)
	if err != nil {
		return err
	}
	*c = n
	return nil
}

// ParseCount reads display text such as "1,234" or "12.0". Empty text is zero.
func ParseCount(s string) (Count, error) {
	s = strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// 12.0 from loosely typed producers
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("invalid count %q", s)
		}
		n = int64(f)
	}
	return Count(n), nil
}

// Score is a rating that may arrive quoted.
type Score float64

func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	v, err := ParseScore(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseScore reads a rating from text. Empty text is zero.
func ParseScore(raw string) (Score, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating %q", raw)
	}
	return Score(v), nil
}

// Keywords accepts a JSON array or free text like "#회귀 #먼치킨".
type Keywords []string

func (k *Keywords) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*k = nil
	case len(b) > 0 && b[0] == '[':
		var tags []string
		if err := json.Unmarshal(b, &tags); err != nil {
			return fmt.Errorf("keywords: %w", err)
		}
		*k = models.CleanTags(tags)
	default:
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("keywords: %w", err)
		}
		*k = models.DecodeTags(s)
	}
	return nil
}
