package content

import (
	"fmt"
	"strings"

	"storyhub/pkg/database"
	"storyhub/pkg/models"
)

// sourceColumns is the projection every source table contributes to the union.
// The global id is derived here so ordering and paging see one namespace.
const sourceColumns = `id * 2 + %d AS gid, id AS local_id, '%s' AS kind,
		url, img, title, author, recommend, rating, genre, serial, publisher, summary,
		page_count, page_unit, age, platform, keywords, viewers, created_at, updated_at`

const outerColumns = `c.gid, c.local_id, c.kind, c.url, c.img, c.title, c.author, c.recommend,
		c.rating, c.genre, c.serial, c.publisher, c.summary, c.page_count, c.page_unit,
		c.age, c.platform, c.keywords, c.viewers, c.created_at, c.updated_at`

var sortKeys = map[SortBy]string{
	SortPopularity: "(c.viewers + c.rating * 10000)",
	SortRating:     "c.rating",
	SortViews:      "c.viewers",
	SortViewers:    "c.viewers",
	SortRecommend:  "c.recommend",
	SortNewest:     "COALESCE(c.updated_at, c.created_at)",
}

// buildListSQL renders one statement over every source the filter includes:
// each source is filtered on its own, the union is sorted and paged as a whole.
// All user input is bound as arguments.
func buildListSQL(f Filter, d database.Dialect) (string, []any) {
	where, whereArgs := buildWhere(f, d)

	var parts []string
	var args []any
	for _, kind := range models.Kinds {
		if !f.Kind.Includes(kind) {
			continue
		}
		part := fmt.Sprintf("SELECT "+sourceColumns+" FROM %s", kindBit(kind), kind, kind.Table())
		if len(where) > 0 {
			part += " WHERE " + strings.Join(where, " AND ")
		}
		parts = append(parts, part)
		args = append(args, whereArgs...)
	}

	key, ok := sortKeys[f.SortBy]
	if !ok {
		key = sortKeys[SortPopularity]
	}

	sqlStr := "SELECT " + outerColumns + " FROM (" + strings.Join(parts, " UNION ALL ") + ") AS c" +
		" ORDER BY " + key + " DESC, c.gid ASC" +
		" LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)
	return sqlStr, args
}

func kindBit(k models.Kind) int64 {
	return models.GlobalID(k, 0)
}

// buildWhere returns the AND-ed predicates shared by every source.
func buildWhere(f Filter, d database.Dialect) ([]string, []any) {
	var where []string
	var args []any
	esc := d.LikeEscape()

	contains := func(col, v string) {
		if v == "" {
			return
		}
		where = append(where, "LOWER("+col+") LIKE ?"+esc)
		args = append(args, likePattern(v))
	}
	contains("title", f.Title)
	contains("author", f.Author)
	contains("platform", f.Platform)
	contains("age", f.Age)
	contains("serial", f.Serial)

	if f.Genre != "" {
		where = append(where, "LOWER(genre) = ?")
		args = append(args, strings.ToLower(f.Genre))
	}

	if len(f.Keywords) > 0 {
		var or []string
		for _, tag := range f.Keywords {
			or = append(or, "LOWER(keywords) LIKE ?"+esc)
			args = append(args, tagPattern(tag))
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}

	ranged := func(col string, lo, hi any) {
		if lo != nil {
			where = append(where, col+" >= ?")
			args = append(args, lo)
		}
		if hi != nil {
			where = append(where, col+" <= ?")
			args = append(args, hi)
		}
	}
	ranged("page_count", deref(f.Episodes.Min), deref(f.Episodes.Max))
	ranged("rating", deref(f.Rating.Min), deref(f.Rating.Max))
	ranged("viewers", deref(f.Views.Min), deref(f.Views.Max))

	// blocks apply regardless of the adult flag
	if len(f.BlockedGenres) > 0 {
		where = append(where, "(genre IS NULL OR LOWER(genre) NOT IN ("+database.Placeholders(len(f.BlockedGenres))+"))")
		for _, g := range f.BlockedGenres {
			args = append(args, strings.ToLower(g))
		}
	}
	if len(f.BlockedTags) > 0 {
		var or []string
		for _, tag := range f.BlockedTags {
			or = append(or, "LOWER(keywords) LIKE ?"+esc)
			args = append(args, tagPattern(tag))
		}
		where = append(where, "NOT ("+strings.Join(or, " OR ")+")")
	}

	if !f.ShowAdultContent {
		var or []string
		for _, m := range models.AdultMarkers {
			or = append(or, "LOWER(age) LIKE ?"+esc)
			args = append(args, likePattern(m))
		}
		where = append(where, "(age IS NULL OR NOT ("+strings.Join(or, " OR ")+"))")
	}

	return where, args
}

func likePattern(v string) string {
	return "%" + database.EscapeLike(strings.ToLower(v)) + "%"
}

// tagPattern matches a whole element of the JSON array in the keywords column.
func tagPattern(tag string) string {
	return "%" + database.EscapeLike(strings.ToLower(models.EncodeTag(tag))) + "%"
}

// deref keeps an unset bound as an untyped nil so it is skipped.
func deref[T int64 | float64](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
