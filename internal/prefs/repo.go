package prefs

import (
	"context"
	"database/sql"
	"errors"

	"storyhub/internal/content"
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

// Get returns nil when the user never saved preferences.
func (r *Repo) Get(ctx context.Context, userID string) (*models.UserPreferences, error) {
	var (
		p            models.UserPreferences
		genres, tags string
		adult        bool
		updated      database.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT user_id, blocked_genres, blocked_tags, show_adult_content, updated_at
		FROM user_preferences
		WHERE user_id = ?
	`, userID).Scan(&p.UserID, &genres, &tags, &adult, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Storage("get preferences", err)
	}

	p.BlockedGenres = models.DecodeTags(genres)
	p.BlockedTags = models.DecodeTags(tags)
	p.ShowAdultContent = adult
	p.UpdatedAt = updated.Time
	return &p, nil
}

// Upsert replaces the stored preferences of p.UserID.
func (r *Repo) Upsert(ctx context.Context, p models.UserPreferences) error {
	q := `INSERT INTO user_preferences (user_id, blocked_genres, blocked_tags, show_adult_content)
		VALUES (?, ?, ?, ?) ` +
		r.Dialect.Upsert("user_id", []string{"blocked_genres", "blocked_tags", "show_adult_content"}, "updated_at")

	_, err := r.DB.ExecContext(ctx, q,
		p.UserID,
		models.EncodeTags(p.BlockedGenres),
		models.EncodeTags(p.BlockedTags),
		p.ShowAdultContent,
	)
	if err != nil {
		return domain.Storage("upsert preferences", err)
	}
	return nil
}

// Blocklist feeds stored preferences into catalog queries.
func (r *Repo) Blocklist(ctx context.Context, userID string) (content.Blocklist, error) {
	p, err := r.Get(ctx, userID)
	if err != nil || p == nil {
		return content.Blocklist{}, err
	}
	return content.Blocklist{
		Genres:           p.BlockedGenres,
		Tags:             p.BlockedTags,
		ShowAdultContent: p.ShowAdultContent,
	}, nil
}
