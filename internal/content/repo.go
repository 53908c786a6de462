package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storyhub/internal/domain"
	"storyhub/pkg/database"
	"storyhub/pkg/models"
)

type Repo struct {
	DB      *sql.DB
	Dialect database.Dialect
}

func NewRepo(db *sql.DB, d database.Dialect) *Repo {
	return &Repo{DB: db, Dialect: d}
}

// List runs one page of the filtered catalog query. f must already be valid.
func (r *Repo) List(ctx context.Context, f Filter) ([]models.ContentItem, error) {
	sqlStr, args := buildListSQL(f, r.Dialect)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, domain.Storage("list query", err)
	}
	defer rows.Close()

	out := make([]models.ContentItem, 0, f.Limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, domain.Storage("list scan", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list rows", err)
	}
	return out, nil
}

// Get loads a single item by its per-table id.
func (r *Repo) Get(ctx context.Context, kind models.Kind, localID int64) (models.ContentItem, error) {
	sqlStr := fmt.Sprintf("SELECT "+sourceColumns+" FROM %s WHERE id = ?", kindBit(kind), kind, kind.Table())
	item, err := scanItem(r.DB.QueryRowContext(ctx, sqlStr, localID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ContentItem{}, &domain.NotFoundError{Resource: string(kind)}
		}
		return models.ContentItem{}, domain.Storage("get content", err)
	}
	return item, nil
}

// Ping reports whether storage is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return domain.Storage("ping", r.DB.PingContext(ctx))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (models.ContentItem, error) {
	var (
		m         models.ContentItem
		kind      string
		siteURL   sql.NullString
		img       sql.NullString
		author    sql.NullString
		genre     sql.NullString
		serial    sql.NullString
		publisher sql.NullString
		summary   sql.NullString
		pageUnit  sql.NullString
		age       sql.NullString
		platform  sql.NullString
		keywords  sql.NullString
		created   database.NullTime
		updated   database.NullTime
	)

	if err := s.Scan(
		&m.ID, &m.LocalID, &kind, &siteURL, &img, &m.Title, &author, &m.Recommend,
		&m.Rating, &genre, &serial, &publisher, &summary, &m.Episodes, &pageUnit,
		&age, &platform, &keywords, &m.Views, &created, &updated,
	); err != nil {
		return models.ContentItem{}, err
	}

	m.Type = models.Kind(kind)
	m.SiteURL = siteURL.String
	m.CoverImage = img.String
	m.Author = author.String
	m.Genre = genre.String
	m.Serial = serial.String
	m.Publisher = publisher.String
	m.Description = summary.String
	m.EpisodeUnit = pageUnit.String
	m.AgeRating = age.String
	m.Platform = platform.String
	m.Tags = models.DecodeTags(keywords.String)
	m.CreatedAt = created.Time
	m.UpdatedAt = updated.Time
	return m, nil
}
