package geo

import (
	"regexp"
	"strings"
	"unicode"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Resolution is a canonical display city plus an optional IATA code.
type Resolution struct {
	City string
	IATA string
}

type aliasEntry struct {
	alias string
	city  string
	iata  string
}

// Static seed table. Aliases are accent-folded lowercase; order matters for
// the substring pass (first match wins, deliberately unranked).
var staticAliases = []aliasEntry{
	{"madrid", "Madrid", "MAD"},
	{"barcelona", "Barcelona", "BCN"},
	{"paris", "París", "PAR"},
	{"londres", "Londres", "LON"},
	{"london", "Londres", "LON"},
	{"roma", "Roma", "ROM"},
	{"rome", "Roma", "ROM"},
	{"nueva york", "Nueva York", "NYC"},
	{"new york", "Nueva York", "NYC"},
	{"tokio", "Tokio", "TYO"},
	{"tokyo", "Tokio", "TYO"},
}

var staticIATA = map[string]string{
	"MAD": "Madrid", "BCN": "Barcelona", "PAR": "París", "LON": "Londres",
	"ROM": "Roma", "NYC": "Nueva York", "TYO": "Tokio",
}

var iataPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Resolver maps free-text destinations onto canonical cities and IATA codes.
// The learned cache is process-wide and append-only: entries are immutable
// once written and re-learning the same pair is a no-op, so concurrent
// Learn calls are harmless. Nothing here is persisted across restarts; a
// cold cache just costs one extra dynamic lookup.
type Resolver struct {
	learnedAlias *gocache.Cache
	learnedIATA  *gocache.Cache
}

func NewResolver() *Resolver {
	return &Resolver{
		learnedAlias: gocache.New(gocache.NoExpiration, 0),
		learnedIATA:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Resolve looks a query up, in order: IATA passthrough, exact alias,
// substring alias, and finally a title-cased echo of the query with no IATA.
// Pure and side-effect free.
func (r *Resolver) Resolve(query string) Resolution {
	raw := strings.TrimSpace(query)
	if raw == "" {
		return Resolution{}
	}

	if upper := strings.ToUpper(raw); iataPattern.MatchString(upper) {
		if city, ok := staticIATA[upper]; ok {
			return Resolution{City: city, IATA: upper}
		}
		if city, ok := r.learnedIATA.Get(upper); ok {
			return Resolution{City: city.(string), IATA: upper}
		}
	}

	folded := Fold(raw)

	for _, e := range staticAliases {
		if e.alias == folded {
			return Resolution{City: e.city, IATA: e.iata}
		}
	}
	if hit, ok := r.learnedAlias.Get(folded); ok {
		res := hit.(Resolution)
		return res
	}

	for _, e := range staticAliases {
		if strings.Contains(folded, e.alias) {
			return Resolution{City: e.city, IATA: e.iata}
		}
	}
	for alias, item := range r.learnedAlias.Items() {
		if strings.Contains(folded, alias) {
			res := item.Object.(Resolution)
			return res
		}
	}

	return Resolution{City: TitleCase(raw)}
}

// Learn records a dynamically discovered city/IATA pair. Empty inputs and
// malformed codes are ignored; an already-known alias is never overwritten.
func (r *Resolver) Learn(city, iata string) {
	city = strings.TrimSpace(city)
	iata = strings.ToUpper(strings.TrimSpace(iata))
	if city == "" || !isAlphaIATA(iata) {
		return
	}

	alias := Fold(city)
	if _, ok := r.learnedAlias.Get(alias); ok {
		return
	}
	if err := r.learnedAlias.Add(alias, Resolution{City: city, IATA: iata}, gocache.NoExpiration); err == nil {
		_ = r.learnedIATA.Add(iata, city, gocache.NoExpiration)
		log.Info().Str("city", city).Str("iata", iata).Msg("caché de ciudades actualizada")
	}
}

func isAlphaIATA(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, ch := range code {
		if ch < 'A' || ch > 'Z' {
			return false
		}
	}
	return true
}

// Fold lowercases a string and strips combining accents ("París" -> "paris").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// TitleCase renders a raw query as a display city name.
func TitleCase(s string) string {
	return cases.Title(language.Spanish).String(strings.ToLower(strings.TrimSpace(s)))
}
