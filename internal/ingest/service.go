package ingest

import (
	"context"

	"github.com/sirupsen/logrus"

	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

// Notifier is told about every stored record.
type Notifier interface {
	ContentUpserted(kind models.Kind, url, title string)
}

type Service struct {
	Store    *Store
	Notifier Notifier
	log      *logrus.Entry
}

func NewService(store *Store, n Notifier) *Service {
	return &Service{Store: store, Notifier: n, log: logger.Module("ingest")}
}

// Ingest normalizes and stores one record. Invalid records never reach storage.
func (s *Service) Ingest(ctx context.Context, kind models.Kind, r Record) error {
	r, err := Normalize(r)
	if err != nil {
		return err
	}
	if err := s.Store.Upsert(ctx, kind, r); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"type": kind, "url": r.URL}).Debug("record stored")
	s.notify(kind, r)
	return nil
}

// Import merges every source and stores the result in one transaction.
// Records that fail normalization are logged and skipped.
func (s *Service) Import(ctx context.Context, agg *Aggregator) (int, error) {
	items, err := agg.FetchAndMerge(ctx)
	if err != nil {
		return 0, err
	}

	valid := make([]Item, 0, len(items))
	for _, it := range items {
		r, err := Normalize(it.Record)
		if err != nil {
			s.log.WithError(err).WithField("url", it.Record.URL).Warn("skipping record")
			continue
		}
		valid = append(valid, Item{Kind: it.Kind, Record: r})
	}

	n, err := s.Store.UpsertAll(ctx, valid)
	if err != nil {
		return 0, err
	}
	for _, it := range valid {
		s.notify(it.Kind, it.Record)
	}

	s.log.WithFields(logrus.Fields{
		"fetched": len(items),
		"stored":  n,
		"skipped": len(items) - len(valid),
	}).Info("import finished")
	return n, nil
}

func (s *Service) notify(kind models.Kind, r Record) {
	if s.Notifier != nil {
		s.Notifier.ContentUpserted(kind, r.URL, r.Title)
	}
}
