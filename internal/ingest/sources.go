package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"storyhub/pkg/models"
)

// FileSource reads a JSON array of {type, data} items from disk. When Kind is set
// the file may instead hold bare records, all of that kind.
type FileSource struct {
	Path string
	Kind models.Kind
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) FetchAll(ctx context.Context) ([]Item, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return decodeItems(f, s.Kind)
}

// FeedSource pulls the same JSON layout from an HTTP endpoint.
type FeedSource struct {
	URL    string
	Kind   models.Kind
	Client *http.Client
}

func NewFeedSource(url string, kind models.Kind) *FeedSource {
	return &FeedSource{
		URL:    url,
		Kind:   kind,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *FeedSource) Name() string { return "feed:" + s.URL }

func (s *FeedSource) FetchAll(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch %s: status %d: %s", s.URL, resp.StatusCode, body)
	}
	return decodeItems(resp.Body, s.Kind)
}

func decodeItems(r io.Reader, kind models.Kind) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]Item, 0, len(raw))
	for i, msg := range raw {
		var head struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		it := Item{Kind: kind}
		body := msg
		if len(head.Data) > 0 {
			k, ok := models.ParseKind(head.Type)
			if !ok {
				return nil, fmt.Errorf("item %d: invalid type %q", i, head.Type)
			}
			it.Kind = k
			body = head.Data
		} else if kind == "" {
			return nil, fmt.Errorf("item %d: missing type", i)
		}

		if err := json.Unmarshal(body, &it.Record); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}
