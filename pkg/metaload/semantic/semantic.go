// Package semantic loads the set of concept identifiers whose semantic type
// belongs to a target category.
package semantic

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/rrf"
)

// CUISet is an unordered set of concept identifiers.
type CUISet map[string]struct{}

// Has reports whether cui is in the set.
func (s CUISet) Has(cui string) bool {
	_, ok := s[cui]
	return ok
}

// Sorted returns the members in lexical order.
func (s CUISet) Sorted() []string {
	out := make([]string, 0, len(s))
	for cui := range s {
		out = append(out, cui)
	}
	sort.Strings(out)
	return out
}

// Loader filters a semantic-type file by category code.
type Loader struct {
	codes map[string]struct{}
	log   *zap.Logger
}

// NewLoader returns a Loader that keeps CUIs carrying any of codes.
func NewLoader(codes []string, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return &Loader{codes: set, log: log}
}

// Load scans the file at path once. A missing file yields an error and no set.
func (l *Loader) Load(ctx context.Context, path string) (CUISet, rrf.Stats, error) {
	cuis := make(CUISet)
	stats, err := rrf.ScanFile(ctx, path, rrf.StyMinFields, func(fields []string) error {
		if _, ok := l.codes[strings.TrimSpace(fields[rrf.StyTUI])]; !ok {
			return nil
		}
		cui := strings.TrimSpace(fields[rrf.StyCUI])
		if cui == "" {
			return nil
		}
		if _, seen := cuis[cui]; !seen {
			cuis[strings.Clone(cui)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("load semantic types: %w", err)
	}

	l.log.Info("semantic types scanned",
		zap.String("path", path),
		zap.Int64("valid", stats.Valid),
		zap.Int64("skipped", stats.Skipped),
		zap.Int("cuis", len(cuis)),
	)
	return cuis, stats, nil
}
