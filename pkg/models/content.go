package models

import (
	"strings"
	"time"
)

// Kind identifies which source table a content item lives in.
type Kind string

const (
	KindWebtoon Kind = "webtoon"
	KindNovel   Kind = "novel"
)

// Kinds lists every source table in union order.
var Kinds = []Kind{KindWebtoon, KindNovel}

// ParseKind accepts the exact lowercase kind names only.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.TrimSpace(s)) {
	case KindWebtoon:
		return KindWebtoon, true
	case KindNovel:
		return KindNovel, true
	default:
		return "", false
	}
}

// Table is the storage table backing the kind.
func (k Kind) Table() string {
	if k == KindNovel {
		return "novels"
	}
	return "webtoons"
}

// namespaceBit is the low bit of a global id: 0 for webtoons, 1 for novels.
func (k Kind) namespaceBit() int64 {
	if k == KindNovel {
		return 1
	}
	return 0
}

// GlobalID maps a per-table row id into the merged id namespace.
// Webtoons get even ids and novels odd ones, so the two tables never collide.
func GlobalID(kind Kind, localID int64) int64 {
	return localID*2 + kind.namespaceBit()
}

// SplitID is the inverse of GlobalID.
func SplitID(id int64) (Kind, int64) {
	if id%2 != 0 {
		return KindNovel, id / 2
	}
	return KindWebtoon, id / 2
}

// ContentItem is one catalog entry as returned to consumers.
type ContentItem struct {
	ID          int64     `json:"id"`
	LocalID     int64     `json:"localId"`
	Type        Kind      `json:"type"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	Publisher   string    `json:"publisher,omitempty"`
	Serial      string    `json:"serial,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Episodes    int       `json:"episodes"`
	EpisodeUnit string    `json:"episodeUnit,omitempty"`
	Rating      float64   `json:"rating"`
	Recommend   int64     `json:"recommend"`
	Views       int64     `json:"views"`
	AgeRating   string    `json:"ageRating,omitempty"`
	SiteURL     string    `json:"siteUrl,omitempty"`
	CoverImage  string    `json:"coverImage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AdultMarkers are lowercase substrings that classify an age rating as adult.
// The same list drives the SQL adult gate and IsAdultRating.
var AdultMarkers = []string{"19", "성인", "청소년 이용불가", "adult", "r18"}

// IsAdultRating reports whether an age rating denotes adult-only content.
// An empty rating counts as general audience.
func IsAdultRating(age string) bool {
	age = strings.ToLower(strings.TrimSpace(age))
	if age == "" {
		return false
	}
	for _, m := range AdultMarkers {
		if strings.Contains(age, m) {
			return true
		}
	}
	return false
}
