package content

import (
	"cmp"
	"math"
	"net/url"
	"strconv"
	"strings"

	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

const (
	DefaultLimit = 50
	MaxRating    = 5.0
)

// KindFilter selects which sources a query reads.
type KindFilter string

const (
	KindAll     KindFilter = "all"
	KindWebtoon KindFilter = KindFilter(models.KindWebtoon)
	KindNovel   KindFilter = KindFilter(models.KindNovel)
)

func (k KindFilter) valid() bool {
	return k == KindAll || k == KindWebtoon || k == KindNovel
}

// Includes reports whether rows of kind are part of the result.
func (k KindFilter) Includes(kind models.Kind) bool {
	return k == KindAll || k == "" || string(k) == string(kind)
}

type SortBy string

const (
	SortPopularity SortBy = "popularity"
	SortRating     SortBy = "rating"
	SortViews      SortBy = "views"
	SortRecommend  SortBy = "recommend"
	SortNewest     SortBy = "newest"
	SortViewers    SortBy = "viewers"
)

// ParseSortBy never fails: anything unrecognised sorts by popularity.
func ParseSortBy(s string) SortBy {
	switch v := SortBy(strings.TrimSpace(s)); v {
	case SortPopularity, SortRating, SortViews, SortRecommend, SortNewest, SortViewers:
		return v
	default:
		return SortPopularity
	}
}

// Range is an inclusive numeric bound. A nil end is unbounded.
type Range[T cmp.Ordered] struct {
	Min *T
	Max *T
}

func (r Range[T]) IsZero() bool { return r.Min == nil && r.Max == nil }

// Filter describes one catalog query. It is built per request and not mutated
// once handed to the repository.
type Filter struct {
	Kind KindFilter

	Title    string
	Author   string
	Genre    string
	Platform string
	Serial   string
	Age      string

	// Keywords matches items carrying at least one of the tags.
	Keywords []string

	Episodes Range[int64]
	Rating   Range[float64]
	Views    Range[int64]

	BlockedGenres []string
	BlockedTags   []string

	ShowAdultContent bool

	SortBy SortBy
	Limit  int
	Offset int
}

// ParseFilter turns query parameters into a validated Filter.
// Unknown keys are ignored.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Title:            strings.TrimSpace(q.Get("title")),
		Author:           strings.TrimSpace(q.Get("author")),
		Genre:            strings.TrimSpace(q.Get("genre")),
		Platform:         strings.TrimSpace(q.Get("platform")),
		Serial:           strings.TrimSpace(q.Get("serial")),
		Age:              strings.TrimSpace(q.Get("age")),
		Keywords:         splitList(append(append([]string{}, q["keywords"]...), q["tags"]...)),
		BlockedGenres:    splitList(q["blockedGenres"]),
		BlockedTags:      splitList(q["blockedTags"]),
		ShowAdultContent: q.Get("showAdultContent") == "true",
		SortBy:           ParseSortBy(q.Get("sortBy")),
		Limit:            DefaultLimit,
	}

	switch t := strings.TrimSpace(q.Get("type")); t {
	case "":
		f.Kind = KindAll
	default:
		f.Kind = KindFilter(t)
		if !f.Kind.valid() {
			return Filter{}, domain.Invalid("type", "must be one of all, webtoon, novel")
		}
	}

	var err error
	if f.Episodes.Min, err = parseInt(q, "minEpisodes"); err != nil {
		return Filter{}, err
	}
	if f.Episodes.Max, err = parseInt(q, "maxEpisodes"); err != nil {
		return Filter{}, err
	}
	if f.Rating.Min, err = parseFloat(q, "minRating"); err != nil {
		return Filter{}, err
	}
	if f.Rating.Max, err = parseFloat(q, "maxRating"); err != nil {
		return Filter{}, err
	}
	if f.Views.Min, err = parseInt(q, "minViewers"); err != nil {
		return Filter{}, err
	}
	if f.Views.Max, err = parseInt(q, "maxViewers"); err != nil {
		return Filter{}, err
	}

	limit, err := parseInt(q, "limit")
	if err != nil {
		return Filter{}, err
	}
	if limit != nil {
		if *limit <= 0 || *limit > math.MaxInt32 {
			return Filter{}, domain.Invalid("limit", "must be a positive integer")
		}
		f.Limit = int(*limit)
	}
	offset, err := parseInt(q, "offset")
	if err != nil {
		return Filter{}, err
	}
	if offset != nil {
		if *offset < 0 || *offset > math.MaxInt32 {
			return Filter{}, domain.Invalid("offset", "must be zero or a positive integer")
		}
		f.Offset = int(*offset)
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate fills defaults for zero values and checks the invariants ParseFilter
// guarantees. Filters assembled in code go through it before reaching storage.
func (f *Filter) Validate() error {
	if f.Kind == "" {
		f.Kind = KindAll
	}
	if !f.Kind.valid() {
		return domain.Invalid("type", "must be one of all, webtoon, novel")
	}
	f.SortBy = ParseSortBy(string(f.SortBy))

	switch {
	case f.Limit == 0:
		f.Limit = DefaultLimit
	case f.Limit < 0:
		return domain.Invalid("limit", "must be a positive integer")
	}
	if f.Offset < 0 {
		return domain.Invalid("offset", "must be zero or a positive integer")
	}

	nonNegative := func(v int64) bool { return v >= 0 }
	if err := checkRange(f.Episodes, "minEpisodes", "maxEpisodes", nonNegative, "must not be negative"); err != nil {
		return err
	}
	if err := checkRange(f.Views, "minViewers", "maxViewers", nonNegative, "must not be negative"); err != nil {
		return err
	}
	inScale := func(v float64) bool { return v >= 0 && v <= MaxRating }
	return checkRange(f.Rating, "minRating", "maxRating", inScale, "must be between 0 and 5")
}

func checkRange[T cmp.Ordered](r Range[T], minKey, maxKey string, ok func(T) bool, msg string) error {
	if r.Min != nil && !ok(*r.Min) {
		return domain.Invalid(minKey, "%s", msg)
	}
	if r.Max != nil && !ok(*r.Max) {
		return domain.Invalid(maxKey, "%s", msg)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return domain.Invalid(minKey, "must not exceed %s", maxKey)
	}
	return nil
}

func parseInt(q url.Values, key string) (*int64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &domain.ValidationError{Field: key, Msg: "must be an integer", Err: err}
	}
	return &n, nil
}

func parseFloat(q url.Values, key string) (*float64, error) {
	s := strings.TrimSpace(q.Get(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &domain.ValidationError{Field: key, Msg: "must be a number", Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, domain.Invalid(key, "must be a finite number")
	}
	return &v, nil
}

// splitList flattens "a,b" and repeated keys into a trimmed set, first seen wins.
func splitList(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// EncodeFilter renders f as query parameters that ParseFilter reads back to
// the same Filter.
func EncodeFilter(f Filter) url.Values {
	q := url.Values{}
	if f.Kind != "" && f.Kind != KindAll {
		q.Set("type", string(f.Kind))
	}
	for key, v := range map[string]string{
		"title":    f.Title,
		"author":   f.Author,
		"genre":    f.Genre,
		"platform": f.Platform,
		"serial":   f.Serial,
		"age":      f.Age,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	for _, k := range f.Keywords {
		q.Add("keywords", k)
	}
	for _, g := range f.BlockedGenres {
		q.Add("blockedGenres", g)
	}
	for _, t := range f.BlockedTags {
		q.Add("blockedTags", t)
	}

	setInt(q, "minEpisodes", f.Episodes.Min)
	setInt(q, "maxEpisodes", f.Episodes.Max)
	setInt(q, "minViewers", f.Views.Min)
	setInt(q, "maxViewers", f.Views.Max)
	if f.Rating.Min != nil {
		q.Set("minRating", strconv.FormatFloat(*f.Rating.Min, 'f', -1, 64))
	}
	if f.Rating.Max != nil {
		q.Set("maxRating", strconv.FormatFloat(*f.Rating.Max, 'f', -1, 64))
	}

	if f.ShowAdultContent {
		q.Set("showAdultContent", "true")
	}
	if f.SortBy != "" {
		q.Set("sortBy", string(f.SortBy))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

func setInt(q url.Values, key string, v *int64) {
	if v != nil {
		q.Set(key, strconv.FormatInt(*v, 10))
	}
}

// Blocklist is a user's stored restriction set.
type Blocklist struct {
	Genres           []string
	Tags             []string
	ShowAdultContent bool
}

// ApplyBlocklist unions the user's blocks into f. Adult content stays visible only
// when both the request and the stored preference allow it.
func ApplyBlocklist(f Filter, b Blocklist) Filter {
	f.BlockedGenres = splitList(append(append([]string{}, f.BlockedGenres...), b.Genres...))
	f.BlockedTags = splitList(append(append([]string{}, f.BlockedTags...), b.Tags...))
	f.ShowAdultContent = f.ShowAdultContent && b.ShowAdultContent
	return f
}

// Hides reports whether a listing under f would leave item out because of the
// adult gate or a block. Names compare case-insensitively, as in SQL.
func (f Filter) Hides(item models.ContentItem) bool {
	if !f.ShowAdultContent && models.IsAdultRating(item.AgeRating) {
		return true
	}
	genre := strings.ToLower(item.Genre)
	for _, g := range f.BlockedGenres {
		if genre != "" && strings.ToLower(g) == genre {
			return true
		}
	}
	for _, blocked := range f.BlockedTags {
		b := strings.ToLower(blocked)
		for _, tag := range item.Tags {
			if strings.ToLower(tag) == b {
				return true
			}
		}
	}
	return false
}
