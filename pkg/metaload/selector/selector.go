// Package selector reduces the name variants of a concept to one canonical
// name using a fixed sequence of comparison criteria.
package selector

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/metaload/pkg/metaload/terms"
)

// DefaultTermTypes is the baseline term-type preference.
var DefaultTermTypes = []string{"PT", "PV", "SY"}

// Criterion orders two variants. Negative means a ranks ahead of b.
type Criterion func(a, b terms.Variant) int

// Compose chains criteria left to right; the first non-zero result decides.
func Compose(criteria ...Criterion) Criterion {
	return func(a, b terms.Variant) int {
		for _, c := range criteria {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// ByRank prefers values that appear earlier in ranking. Values absent from
// ranking tie with each other behind every listed value.
func ByRank(ranking []string, key func(terms.Variant) string) Criterion {
	idx := make(map[string]int, len(ranking))
	for i, r := range ranking {
		if _, dup := idx[r]; !dup {
			idx[r] = i
		}
	}
	rank := func(v terms.Variant) int {
		if i, ok := idx[key(v)]; ok {
			return i
		}
		return len(ranking)
	}
	return func(a, b terms.Variant) int {
		return cmp.Compare(rank(a), rank(b))
	}
}

// BySource ranks by source vocabulary.
func BySource(ranking []string) Criterion {
	return ByRank(ranking, func(v terms.Variant) string { return v.Source })
}

// ByTermType ranks by term type.
func ByTermType(ranking []string) Criterion {
	return ByRank(ranking, func(v terms.Variant) string { return v.TermType })
}

// PreferredFirst puts variants flagged preferred ahead of the rest.
func PreferredFirst(a, b terms.Variant) int {
	switch {
	case a.Preferred == b.Preferred:
		return 0
	case a.Preferred:
		return -1
	default:
		return 1
	}
}

// ShorterName prefers fewer characters.
func ShorterName(a, b terms.Variant) int {
	return cmp.Compare(utf8.RuneCountInString(a.Name), utf8.RuneCountInString(b.Name))
}

// FewerPunctuation prefers names with fewer ';', ',' and '.' characters.
func FewerPunctuation(a, b terms.Variant) int {
	return cmp.Compare(punctuation(a.Name), punctuation(b.Name))
}

// Lexical orders by the raw name bytes. It only separates variants that every
// other criterion ties, which keeps the choice independent of scan order.
func Lexical(a, b terms.Variant) int {
	return strings.Compare(a.Name, b.Name)
}

func punctuation(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ';', ',', '.':
			n++
		}
	}
	return n
}

// Selector picks one name per concept.
type Selector struct {
	order Criterion
}

// New builds the five-criterion ordering for the given source ranking and
// term-type list. An empty termTypes falls back to DefaultTermTypes.
func New(sources, termTypes []string) *Selector {
	if len(termTypes) == 0 {
		termTypes = DefaultTermTypes
	}
	return &Selector{
		order: Compose(
			BySource(sources),
			PreferredFirst,
			ByTermType(termTypes),
			ShorterName,
			FewerPunctuation,
			Lexical,
		),
	}
}

// Compare exposes the composed ordering.
func (s *Selector) Compare(a, b terms.Variant) int {
	return s.order(a, b)
}

// Choose returns the best variant. ok is false for an empty list.
func (s *Selector) Choose(variants []terms.Variant) (best terms.Variant, ok bool) {
	if len(variants) == 0 {
		return terms.Variant{}, false
	}
	// Linear scan keeps the first of equal variants, like a stable sort.
	best = variants[0]
	for _, v := range variants[1:] {
		if s.order(v, best) < 0 {
			best = v
		}
	}
	return best, true
}

// Rank returns a sorted copy of variants, best first.
func (s *Selector) Rank(variants []terms.Variant) []terms.Variant {
	out := slices.Clone(variants)
	slices.SortStableFunc(out, s.order)
	return out
}

// SelectAll chooses a name for every concept in set. Variants with a blank
// name never compete; concepts left with none are dropped.
func (s *Selector) SelectAll(set terms.Set) map[string]string {
	out := make(map[string]string, len(set))
	for cui, variants := range set {
		named := slices.DeleteFunc(slices.Clone(variants), func(v terms.Variant) bool {
			return v.Name == ""
		})
		if best, ok := s.Choose(named); ok {
			out[cui] = best.Name
		}
	}
	return out
}
