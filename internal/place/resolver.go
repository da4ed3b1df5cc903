package place

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/MapPoster/internal/model"
)

// ErrUnresolvedPlace is matched by errors.Is when no geocoding candidate was
// accepted for a place.
var ErrUnresolvedPlace = errors.New("unresolved place")

// UnresolvedError reports a place that could not be resolved after the whole
// query sequence was exhausted.
type UnresolvedError struct {
	Name    string
	Country string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("Could not find coordinates for %s, %s. Try alternate spellings or include state/province.", e.Name, e.Country)
}

// Is makes errors.Is(err, ErrUnresolvedPlace) succeed.
func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolvedPlace
}

// QueryKind selects between structured and free-text geocoding.
type QueryKind string

const (
	KindCity     QueryKind = "city"
	KindCounty   QueryKind = "county"
	KindState    QueryKind = "state"
	KindFreeText QueryKind = "q"
)

// Query is one geocoding request. Structured kinds use Name and Country; the
// free-text kind uses Text.
type Query struct {
	Kind    QueryKind
	Name    string
	Country string
	Text    string
}

func (q Query) String() string {
	if q.Kind == KindFreeText {
		return q.Text
	}
	return fmt.Sprintf("%s=%s, country=%s", q.Kind, q.Name, q.Country)
}

// Geocoder looks up the single best match for a query. It returns a nil
// candidate and nil error when the service has no match.
type Geocoder interface {
	Geocode(ctx context.Context, q Query) (*Candidate, error)
}

// Resolver orchestrates variant generation, the prioritized query sequence and
// candidate validation.
type Resolver struct {
	geocoder  Geocoder
	validator *Validator
	log       zerolog.Logger
}

// NewResolver constructs a Resolver. A nil validator selects NewValidator().
func NewResolver(geocoder Geocoder, validator *Validator, log zerolog.Logger) *Resolver {
	if validator == nil {
		validator = NewValidator()
	}
	return &Resolver{geocoder: geocoder, validator: validator, log: log}
}

// Queries returns the query sequence for name and country in issue order:
// every variant as a city, then as a county, then as a state, followed by the
// plain "name, country" text and, for names containing whitespace, the same
// text with all whitespace removed.
func Queries(name, country string) []Query {
	variants := Variants(name)
	country = strings.TrimSpace(country)
	queries := make([]Query, 0, len(variants)*3+2)
	for _, kind := range []QueryKind{KindCity, KindCounty, KindState} {
		for _, v := range variants {
			queries = append(queries, Query{Kind: kind, Name: v, Country: country})
		}
	}
	plain := strings.TrimSpace(name)
	queries = append(queries, Query{Kind: KindFreeText, Text: freeText(plain, country)})
	if compact := strings.Join(strings.Fields(plain), ""); compact != plain {
		queries = append(queries, Query{Kind: KindFreeText, Text: freeText(compact, country)})
	}
	return queries
}

// Resolve returns the coordinates of the first accepted candidate. Queries are
// issued one at a time; transport failures are logged and treated as "no
// candidate". Only exhausting the sequence yields an UnresolvedError. A
// cancelled context aborts immediately with the context error.
func (r *Resolver) Resolve(ctx context.Context, name, country string) (model.Point, error) {
	variants := Variants(name)
	normalizedCountry := NormalizeText(country)
	queries := Queries(name, country)
	if len(variants) == 0 {
		return model.Point{}, &UnresolvedError{Name: name, Country: country}
	}

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return model.Point{}, err
		}
		attempt := i + 1
		candidate, err := r.geocoder.Geocode(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Point{}, ctxErr
			}
			r.log.Warn().Err(err).Int("attempt", attempt).Str("query", q.String()).Msg("geocoding attempt failed")
			continue
		}
		if candidate == nil {
			r.log.Debug().Int("attempt", attempt).Str("query", q.String()).Msg("geocoder returned no match")
			continue
		}
		decision := r.validator.Evaluate(candidate, variants, normalizedCountry)
		if !decision.Accepted {
			r.log.Debug().
				Int("attempt", attempt).
				Str("query", q.String()).
				Str("candidate", candidate.DisplayName).
				Str("reason", decision.String()).
				Msg("skipping candidate that does not match requested place")
			continue
		}
		r.log.Info().
			Int("attempt", attempt).
			Str("candidate", candidate.DisplayName).
			Str("reason", decision.String()).
			Str("coords", candidate.Point.String()).
			Msg("place resolved")
		return candidate.Point, nil
	}
	return model.Point{}, &UnresolvedError{Name: name, Country: country}
}

func freeText(name, country string) string {
	if country == "" {
		return name
	}
	return name + ", " + country
}
