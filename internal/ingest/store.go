package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storyhub/internal/domain"
	"storyhub/pkg/database"
	"storyhub/pkg/models"
)

var insertColumns = []string{
	"url", "img", "title", "author", "recommend", "rating", "genre", "serial", "publisher",
	"summary", "page_count", "page_unit", "age", "platform", "keywords", "viewers",
}

// updateColumns are refreshed when the url already exists. Title, author and
// platform identify the work and are kept from the first insert.
var updateColumns = []string{
	"img", "recommend", "rating", "genre", "serial", "publisher", "summary",
	"page_count", "page_unit", "age", "keywords", "viewers",
}

// Store writes records keyed by their source url.
type Store struct {
	DB      *sql.DB
	Dialect database.Dialect
}

func NewStore(db *sql.DB, d database.Dialect) *Store {
	return &Store{DB: db, Dialect: d}
}

func (s *Store) upsertSQL(kind models.Kind) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		kind.Table(),
		strings.Join(insertColumns, ", "),
		database.Placeholders(len(insertColumns)),
		s.Dialect.Upsert("url", updateColumns, "updated_at"),
	)
}

// Upsert inserts r or refreshes the row with the same url.
func (s *Store) Upsert(ctx context.Context, kind models.Kind, r Record) error {
	if _, err := s.DB.ExecContext(ctx, s.upsertSQL(kind), recordArgs(r)...); err != nil {
		return domain.Storage("upsert "+kind.Table(), err)
	}
	return nil
}

// UpsertAll writes items in one transaction and returns how many were written.
func (s *Store) UpsertAll(ctx context.Context, items []Item) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.Storage("begin tx", err)
	}
	defer tx.Rollback()

	stmts := make(map[models.Kind]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			st.Close()
		}
	}()

	for _, it := range items {
		st, ok := stmts[it.Kind]
		if !ok {
			st, err = tx.PrepareContext(ctx, s.upsertSQL(it.Kind))
			if err != nil {
				return 0, domain.Storage("prepare upsert", err)
			}
			stmts[it.Kind] = st
		}
		if _, err := st.ExecContext(ctx, recordArgs(it.Record)...); err != nil {
			return 0, domain.Storage(fmt.Sprintf("upsert %s", it.Record.URL), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.Storage("commit tx", err)
	}
	return len(items), nil
}

func recordArgs(r Record) []any {
	return []any{
		r.URL,
		nullString(r.Img),
		r.Title,
		nullString(r.Author),
		int64(r.Recommend),
		float64(r.Rating),
		nullString(r.Genre),
		nullString(r.Serial),
		nullString(r.Publisher),
		nullString(r.Summary),
		int64(r.PageCount),
		nullString(r.PageUnit),
		nullString(r.Age),
		nullString(r.Platform),
		models.EncodeTags(r.Keywords),
		int64(r.Viewers),
	}
}

// nullString stores empty text as NULL so "no genre" and "no age rating" stay
// distinguishable from a real value.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
