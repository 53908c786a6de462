package models

import (
	"encoding/json"
	"strings"
)

// EncodeTags renders a tag set as the JSON array text stored in the keywords column.
func EncodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// EncodeTag renders a single tag exactly as it appears inside EncodeTags output,
// quotes included, so it can be matched as a whole element.
func EncodeTag(tag string) string {
	b, err := json.Marshal(tag)
	if err != nil {
		return `""`
	}
	return string(b)
}

// DecodeTags reads the keywords column. Older rows hold "#a #b" style strings
// instead of a JSON array; both are accepted.
func DecodeTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return CleanTags(tags)
		}
	}
	return CleanTags(SplitTagText(raw))
}

// SplitTagText splits free text like "#로맨스 #판타지" or "로맨스, 판타지" into tags.
func SplitTagText(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '#' || r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// CleanTags trims, drops empties and dedupes while keeping first-seen order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
