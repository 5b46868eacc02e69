// Package terms collects the English name variants of a set of concepts from
// a concept-names file.
package terms

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/rrf"
)

// English is the language code retained by the collector.
const English = "ENG"

// Variant is one named occurrence of a concept.
type Variant struct {
	Name      string
	Source    string // source vocabulary (SAB)
	TermType  string // TTY
	Preferred bool
}

// Set maps a CUI to its variants in scan order.
type Set map[string][]Variant

// Variants counts every variant held in the set.
func (s Set) Variants() int {
	n := 0
	for _, vs := range s {
		n += len(vs)
	}
	return n
}

// Membership is satisfied by semantic.CUISet.
type Membership interface {
	Has(cui string) bool
}

// Stats summarizes one collection pass.
type Stats struct {
	rrf.Stats
	Matched  int64
	Concepts int
}

// Collector scans a concept-names file for the variants of selected CUIs.
type Collector struct {
	language string
	log      *zap.Logger
}

// NewCollector returns a Collector that keeps English variants.
func NewCollector(log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{language: English, log: log}
}

// Collect reads path once and keeps only lines whose CUI is in cuis and whose
// language is English. Nothing outside that subset is retained.
func (c *Collector) Collect(ctx context.Context, path string, cuis Membership) (Set, Stats, error) {
	set := make(Set)
	in := newInterner()
	var matched int64

	scan, err := rrf.ScanFile(ctx, path, rrf.ConsoMinFields, func(fields []string) error {
		cui := strings.TrimSpace(fields[rrf.ConsoCUI])
		if strings.TrimSpace(fields[rrf.ConsoLanguage]) != c.language || cui == "" || !cuis.Has(cui) {
			return nil
		}
		matched++
		key := in.get(cui)
		set[key] = append(set[key], Variant{
			Name:      strings.Clone(strings.TrimSpace(fields[rrf.ConsoName])),
			Source:    in.get(strings.TrimSpace(fields[rrf.ConsoSource])),
			TermType:  in.get(strings.TrimSpace(fields[rrf.ConsoTermType])),
			Preferred: strings.TrimSpace(fields[rrf.ConsoPreferred]) == "Y",
		})
		return nil
	})
	stats := Stats{Stats: scan, Matched: matched, Concepts: len(set)}
	if err != nil {
		return nil, stats, fmt.Errorf("collect terms: %w", err)
	}

	c.log.Info("concept names scanned",
		zap.String("path", path),
		zap.Int64("valid", scan.Valid),
		zap.Int64("skipped", scan.Skipped),
		zap.Int64("matched", matched),
		zap.Int("concepts", len(set)),
	)
	return set, stats, nil
}

// interner shares one copy of the short, highly repeated codes (CUIs, SABs,
// TTYs) so kept variants do not pin whole input lines in memory.
type interner map[string]string

func newInterner() interner { return make(interner) }

func (in interner) get(s string) string {
	if v, ok := in[s]; ok {
		return v
	}
	v := strings.Clone(s)
	in[v] = v
	return v
}
