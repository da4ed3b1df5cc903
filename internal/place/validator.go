package place

import (
	"fmt"
	"sort"
	"strings"
)

// Reason explains a MatchDecision.
type Reason string

const (
	ReasonNoCandidate     Reason = "no_candidate"
	ReasonCountryMismatch Reason = "country_mismatch"
	ReasonNoNameMatch     Reason = "no_name_match"
	ReasonContains        Reason = "contains"
	ReasonWordOverlap     Reason = "word_overlap"
)

// MatchDecision is the outcome of validating one candidate.
type MatchDecision struct {
	Accepted bool
	Reason   Reason
	// Field and Variant identify the pair that matched, or for a country
	// mismatch the two normalized country tokens.
	Field   string
	Variant string
}

func (d MatchDecision) String() string {
	if d.Field == "" {
		return string(d.Reason)
	}
	return fmt.Sprintf("%s (%s ~ %s)", d.Reason, d.Field, d.Variant)
}

// WordOverlapThreshold is the share of the target's words that must appear in
// a candidate field for a fuzzy match.
const WordOverlapThreshold = 0.7

// DefaultCountryAliases groups normalized country tokens that denote the same
// country.
var DefaultCountryAliases = [][]string{
	{"usa", "unitedstates", "unitedstatesofamerica", "us", "america"},
	{"uk", "unitedkingdom", "greatbritain", "britain", "england"},
	{"uae", "unitedarabemirates", "emirates"},
	{"china", "peoplesrepublicofchina", "prc"},
}

// Validator decides whether a geocoding candidate denotes the requested place.
type Validator struct {
	aliases [][]string
}

// NewValidator returns a Validator using DefaultCountryAliases.
func NewValidator() *Validator {
	return &Validator{aliases: DefaultCountryAliases}
}

// NewValidatorWithAliases returns a Validator that knows DefaultCountryAliases
// plus the extra groups. Extra entries are normalized with NormalizeText;
// groups left with fewer than two names are ignored.
func NewValidatorWithAliases(extra [][]string) *Validator {
	aliases := append([][]string(nil), DefaultCountryAliases...)
	for _, group := range extra {
		var names []string
		for _, name := range group {
			if n := NormalizeText(name); n != "" && !contains(names, n) {
				names = append(names, n)
			}
		}
		if len(names) > 1 {
			aliases = append(aliases, names)
		}
	}
	return &Validator{aliases: aliases}
}

// Accepts reports whether candidate matches any of variants within
// normalizedCountry.
func (v *Validator) Accepts(candidate *Candidate, variants []string, normalizedCountry string) bool {
	return v.Evaluate(candidate, variants, normalizedCountry).Accepted
}

// Evaluate validates candidate and explains the decision.
//
// The country check only rejects when both sides carry a country, they
// differ, and they do not share an alias group. The name check accepts when
// any candidate field and target variant contain one another after
// normalization, or when the field covers at least 70% of the variant's words.
func (v *Validator) Evaluate(candidate *Candidate, variants []string, normalizedCountry string) MatchDecision {
	if candidate == nil {
		return MatchDecision{Reason: ReasonNoCandidate}
	}

	candidateCountry := NormalizeText(candidate.Address.Country)
	if normalizedCountry != "" && candidateCountry != "" &&
		normalizedCountry != candidateCountry && !v.sameCountry(normalizedCountry, candidateCountry) {
		return MatchDecision{
			Reason:  ReasonCountryMismatch,
			Field:   candidateCountry,
			Variant: normalizedCountry,
		}
	}

	type target struct {
		raw        string
		normalized string
		words      map[string]struct{}
	}
	targets := make([]target, 0, len(variants))
	seen := make(map[string]struct{}, len(variants))
	for _, variant := range variants {
		n := NormalizeText(variant)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		targets = append(targets, target{raw: variant, normalized: n, words: wordSet(variant)})
	}

	for _, field := range candidate.nameFields() {
		normalized := NormalizeText(field.value)
		if normalized == "" {
			continue
		}
		fieldWords := wordSet(field.value)
		for _, t := range targets {
			if strings.Contains(normalized, t.normalized) || strings.Contains(t.normalized, normalized) {
				return MatchDecision{Accepted: true, Reason: ReasonContains, Field: field.name, Variant: t.raw}
			}
			if overlaps(t.words, fieldWords) {
				return MatchDecision{Accepted: true, Reason: ReasonWordOverlap, Field: field.name, Variant: t.raw}
			}
		}
	}
	return MatchDecision{Reason: ReasonNoNameMatch}
}

func (v *Validator) sameCountry(a, b string) bool {
	for _, group := range v.aliases {
		if contains(group, a) && contains(group, b) {
			return true
		}
	}
	return false
}

// overlaps reports whether candidate covers at least WordOverlapThreshold of
// the target's words.
func overlaps(target, candidate map[string]struct{}) bool {
	if len(target) == 0 || len(candidate) == 0 {
		return false
	}
	shared := 0
	for w := range target {
		if _, ok := candidate[w]; ok {
			shared++
		}
	}
	return float64(shared) >= float64(len(target))*WordOverlapThreshold
}

func wordSet(value string) map[string]struct{} {
	ws := words(value)
	set := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		set[w] = struct{}{}
	}
	return set
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
