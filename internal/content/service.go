package content

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"storyhub/internal/domain"
	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

// Store is the read side of catalog storage.
type Store interface {
	List(ctx context.Context, f Filter) ([]models.ContentItem, error)
	Get(ctx context.Context, kind models.Kind, localID int64) (models.ContentItem, error)
}

// Page is one window of a filtered listing. HasMore is a heuristic: a full page
// means there may be more, no total count is computed.
type Page struct {
	Items   []models.ContentItem `json:"items"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"hasMore"`
}

type Service struct {
	Store Store
	log   *logrus.Entry
}

func NewService(store Store) *Service {
	return &Service{Store: store, log: logger.Module("content")}
}

// FetchPage validates f and returns the matching page. Validation failures never
// reach storage, storage failures come back as *domain.StorageError.
func (s *Service) FetchPage(ctx context.Context, f Filter) (Page, error) {
	if err := f.Validate(); err != nil {
		return Page{}, err
	}

	start := time.Now()
	items, err := s.Store.List(ctx, f)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"type":   f.Kind,
			"sortBy": f.SortBy,
			"limit":  f.Limit,
			"offset": f.Offset,
		}).Error("fetch page failed")
		return Page{}, err
	}

	page := Page{
		Items:   items,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: len(items) == f.Limit,
	}
	s.log.WithFields(logrus.Fields{
		"type":    f.Kind,
		"sortBy":  f.SortBy,
		"limit":   f.Limit,
		"offset":  f.Offset,
		"count":   len(items),
		"hasMore": page.HasMore,
		"elapsed": time.Since(start).String(),
	}).Debug("fetched page")
	return page, nil
}

// Get returns a single item. Items a listing under f would hide (adult gate,
// blocked genre or tag) are reported as missing.
func (s *Service) Get(ctx context.Context, kind models.Kind, localID int64, f Filter) (models.ContentItem, error) {
	if localID <= 0 {
		return models.ContentItem{}, domain.Invalid("id", "must be a positive integer")
	}
	item, err := s.Store.Get(ctx, kind, localID)
	if err != nil {
		return models.ContentItem{}, err
	}
	if f.Hides(item) {
		return models.ContentItem{}, &domain.NotFoundError{Resource: string(kind)}
	}
	return item, nil
}
