package pager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyhub/internal/content"
	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

// HTTPFetcher reads pages from GET /contents.
type HTTPFetcher struct {
	BaseURL string
	Token   string // optional bearer token
	Client  *http.Client
}

func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (h *HTTPFetcher) Fetch(ctx context.Context, f content.Filter) ([]models.ContentItem, error) {
	u := h.BaseURL + "/contents?" + content.EncodeFilter(f).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &domain.NetworkError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.NetworkError{Status: resp.StatusCode, Err: errors.New(errorMessage(resp))}
	}

	var items []models.ContentItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &domain.NetworkError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return items, nil
}

// errorMessage pulls the server's {error} message, falling back to the status text.
func errorMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return http.StatusText(resp.StatusCode)
}
