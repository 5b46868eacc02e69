package selector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/metaload/pkg/metaload/terms"
)

func v(name, sab, tty string, pref bool) terms.Variant {
	return terms.Variant{Name: name, Source: sab, TermType: tty, Preferred: pref}
}

func TestSourceRankDominatesPreferredFlag(t *testing.T) {
	s := New([]string{"SNOMEDCT_US", "MSH"}, nil)

	best, ok := s.Choose([]terms.Variant{
		v("Heart Failure", "MSH", "PT", true),
		v("CHF", "SNOMEDCT_US", "SY", false),
	})

	require.True(t, ok)
	assert.Equal(t, "CHF", best.Name)
}

func TestCriteriaIndividually(t *testing.T) {
	tests := []struct {
		name string
		crit Criterion
		a, b terms.Variant
		want int
	}{
		{"listed source beats unlisted", BySource([]string{"MSH"}), v("x", "MSH", "", false), v("x", "NCI", "", false), -1},
		{"unlisted sources tie", BySource([]string{"MSH"}), v("x", "NCI", "", false), v("x", "LNC", "", false), 0},
		{"earlier source wins", BySource([]string{"A", "B"}), v("x", "B", "", false), v("x", "A", "", false), 1},
		{"preferred first", PreferredFirst, v("x", "", "", true), v("x", "", "", false), -1},
		{"preferred tie", PreferredFirst, v("x", "", "", false), v("y", "", "", false), 0},
		{"PT over SY", ByTermType(DefaultTermTypes), v("x", "", "PT", false), v("x", "", "SY", false), -1},
		{"PV over SY", ByTermType(DefaultTermTypes), v("x", "", "SY", false), v("x", "", "PV", false), 1},
		{"unlisted term types tie", ByTermType(DefaultTermTypes), v("x", "", "AB", false), v("x", "", "MTH_PT", false), 0},
		{"shorter name", ShorterName, v("abc", "", "", false), v("abcd", "", "", false), -1},
		{"characters not bytes", ShorterName, v("ééé", "", "", false), v("abcd", "", "", false), -1},
		{"fewer punctuation", FewerPunctuation, v("a,b", "", "", false), v("a;b.", "", "", false), -1},
		{"other punctuation ignored", FewerPunctuation, v("a-b", "", "", false), v("a/b", "", "", false), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.crit(tt.a, tt.b))
		})
	}
}

func TestCriteriaApplyInOrder(t *testing.T) {
	s := New([]string{"SNOMEDCT_US", "MSH"}, nil)

	// Same source: the preferred flag decides before term type.
	best, _ := s.Choose([]terms.Variant{
		v("Myocardial infarction", "MSH", "PT", false),
		v("MI", "MSH", "SY", true),
	})
	assert.Equal(t, "MI", best.Name)

	// Same source and flag: term type decides before length.
	best, _ = s.Choose([]terms.Variant{
		v("Hypertensive disease", "SNOMEDCT_US", "PT", true),
		v("HTN", "SNOMEDCT_US", "SY", true),
	})
	assert.Equal(t, "Hypertensive disease", best.Name)

	// Everything equal but length.
	best, _ = s.Choose([]terms.Variant{
		v("Diabetes mellitus, type 2", "MSH", "PT", true),
		v("Type 2 diabetes", "MSH", "PT", true),
	})
	assert.Equal(t, "Type 2 diabetes", best.Name)

	// Equal length: fewer punctuation marks.
	best, _ = s.Choose([]terms.Variant{
		v("a.b,c", "MSH", "PT", true),
		v("a b c", "MSH", "PT", true),
	})
	assert.Equal(t, "a b c", best.Name)
}

func TestCustomTermTypes(t *testing.T) {
	s := New([]string{"RXNORM"}, []string{"IN", "BN", "PT"})

	best, _ := s.Choose([]terms.Variant{
		v("Tylenol", "RXNORM", "BN", false),
		v("acetaminophen", "RXNORM", "IN", false),
		v("APAP", "RXNORM", "PT", false),
	})
	assert.Equal(t, "acetaminophen", best.Name)
}

func TestChooseEmpty(t *testing.T) {
	_, ok := New(nil, nil).Choose(nil)
	assert.False(t, ok)
}

func TestChooseIsIndependentOfInputOrder(t *testing.T) {
	s := New([]string{"SNOMEDCT_US", "MSH", "NCI"}, nil)
	variants := []terms.Variant{
		v("Heart Failure", "MSH", "PT", true),
		v("CHF", "SNOMEDCT_US", "SY", false),
		v("Cardiac failure", "SNOMEDCT_US", "PT", false),
		v("Heart failure NOS", "SNOMEDCT_US", "SY", false),
		v("HF", "NCI", "AB", false),
		v("Failure, Heart", "MSH", "PV", false),
		v("ABC", "LNC", "SY", false),
		v("XYZ", "LNC", "SY", false),
	}

	want, ok := s.Choose(variants)
	require.True(t, ok)
	assert.Equal(t, "Cardiac failure", want.Name)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		shuffled := append([]terms.Variant(nil), variants...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, _ := s.Choose(shuffled)
		require.Equal(t, want, got, "iteration %d", i)
		require.Equal(t, want, s.Rank(shuffled)[0])
	}
}

func TestRankIsStableForIdenticalVariants(t *testing.T) {
	s := New(nil, nil)
	a := v("same", "X", "PT", false)
	ranked := s.Rank([]terms.Variant{v("longer", "X", "PT", false), a, a})
	assert.Equal(t, []terms.Variant{a, a, v("longer", "X", "PT", false)}, ranked)
}

func TestSelectAllDropsEmpty(t *testing.T) {
	s := New([]string{"MSH"}, nil)
	got := s.SelectAll(terms.Set{
		"C001": {v("Fever", "MSH", "PT", true)},
		"C002": {},
		"C003": {v("", "MSH", "PT", true), v("Cough", "MSH", "SY", false)},
		"C004": {v("", "MSH", "PT", true)},
	})

	assert.Equal(t, map[string]string{"C001": "Fever", "C003": "Cough"}, got)
}
