package ingest

import (
	"errors"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"storyhub/internal/domain"
	"storyhub/pkg/models"
)

const (
	DefaultPageUnit = "화"
	volumeUnit      = "권"
	episodeUnit     = "회차"

	// episodes per printed volume when a count is given in volumes
	episodesPerVolume = 25
)

var (
	stripTags = bluemonday.StripTagsPolicy()
	validate  = validator.New(validator.WithRequiredStructEnabled())
)

func init() {
	stripTags.AddSpaceWhenStrippingTag(true)
	// report fields by their wire names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Normalize cleans a crawled record and checks it is storable.
func Normalize(r Record) (Record, error) {
	r.URL = strings.TrimSpace(r.URL)
	r.Img = strings.TrimSpace(r.Img)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Genre = strings.TrimSpace(r.Genre)
	r.Serial = strings.TrimSpace(r.Serial)
	r.Publisher = strings.TrimSpace(r.Publisher)
	r.Age = strings.TrimSpace(r.Age)
	r.Platform = strings.TrimSpace(r.Platform)
	r.Summary = CleanSummary(r.Summary)
	r.Keywords = models.CleanTags(r.Keywords)

	switch unit := strings.TrimSpace(r.PageUnit); unit {
	case "":
		r.PageUnit = DefaultPageUnit
	case volumeUnit:
		r.PageUnit = episodeUnit
		r.PageCount *= episodesPerVolume
	default:
		r.PageUnit = unit
	}

	if err := validate.Struct(r); err != nil {
		return Record{}, validationError(err)
	}
	return r, nil
}

// CleanSummary strips markup and collapses whitespace to single spaces.
func CleanSummary(s string) string {
	s = html.UnescapeString(stripTags.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func validationError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &domain.ValidationError{
			Field: fe.Field(),
			Msg:   "failed on " + fe.Tag(),
			Err:   err,
		}
	}
	return &domain.ValidationError{Field: "data", Msg: err.Error(), Err: err}
}
