package ingest

import (
	"context"
	"strings"
	"unicode"

	"storyhub/pkg/logger"
	"storyhub/pkg/models"
)

// Source is implemented by each producer of crawled records (file dump, HTTP feed).
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]Item, error)
}

// Aggregator pulls every source and merges records describing the same work.
type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// FetchAndMerge returns the merged items in first-seen order. Records are the
// same work when they share a url, or failing that a normalized title within
// the same kind. A failing source is logged and skipped.
func (a *Aggregator) FetchAndMerge(ctx context.Context) ([]Item, error) {
	log := logger.Module("ingest")

	var out []Item
	byURL := make(map[string]int)
	byTitle := make(map[string]int)

	for _, src := range a.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.WithField("source", src.Name()).Info("fetching")
		items, err := src.FetchAll(ctx)
		if err != nil {
			log.WithError(err).WithField("source", src.Name()).Warn("source failed")
			continue
		}

		for _, it := range items {
			urlKey, titleKey := "", ""
			if u := strings.TrimSpace(it.Record.URL); u != "" {
				urlKey = string(it.Kind) + "|" + u
			}
			if t := normalizeKey(it.Record.Title); t != "" {
				titleKey = string(it.Kind) + "|" + t
			}

			// empty keys are never stored, so they never match
			idx, ok := byURL[urlKey]
			if !ok {
				idx, ok = byTitle[titleKey]
			}
			if ok {
				out[idx].Record = mergeRecord(out[idx].Record, it.Record)
				continue
			}

			out = append(out, it)
			if urlKey != "" {
				byURL[urlKey] = len(out) - 1
			}
			if titleKey != "" {
				byTitle[titleKey] = len(out) - 1
			}
		}
	}
	return out, nil
}

// normalizeKey lowercases s and reduces everything but letters and digits to
// single spaces.
func normalizeKey(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// mergeRecord resolves two descriptions of the same work:
//
//   - the first record keeps its url and title
//   - empty text fields are filled from incoming
//   - keywords are unioned
//   - counters and rating take the larger value
//   - the longer summary wins
func mergeRecord(base, incoming Record) Record {
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" && v != "" {
			*dst = v
		}
	}
	fill(&base.Img, incoming.Img)
	fill(&base.Author, incoming.Author)
	fill(&base.Genre, incoming.Genre)
	fill(&base.Serial, incoming.Serial)
	fill(&base.Publisher, incoming.Publisher)
	fill(&base.PageUnit, incoming.PageUnit)
	fill(&base.Age, incoming.Age)
	fill(&base.Platform, incoming.Platform)

	base.Keywords = models.CleanTags(append(append(Keywords{}, base.Keywords...), incoming.Keywords...))

	if incoming.Recommend > base.Recommend {
		base.Recommend = incoming.Recommend
	}
	if incoming.Viewers > base.Viewers {
		base.Viewers = incoming.Viewers
	}
	if incoming.PageCount > base.PageCount {
		base.PageCount = incoming.PageCount
	}
	if incoming.Rating > base.Rating {
		base.Rating = incoming.Rating
	}
	if len(incoming.Summary) > len(base.Summary) {
		base.Summary = incoming.Summary
	}
	return base
}
