// Package rrf streams pipe-delimited Rich Release Format files one line at a
// time. Lines that are blank or carry too few fields are counted and skipped.
package rrf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
)

// Delimiter separates fields on every RRF line.
const Delimiter = "|"

// Field positions in the semantic-type file (MRSTY layout).
const (
	StyCUI = 0
	StyTUI = 1

	StyMinFields = 2
)

// Field positions in the concept-names file (MRCONSO layout).
const (
	ConsoCUI       = 0
	ConsoLanguage  = 1
	ConsoSource    = 11
	ConsoTermType  = 12
	ConsoName      = 14
	ConsoPreferred = 16

	ConsoMinFields = ConsoPreferred + 1
)

// cancelCheckEvery is how many lines pass between context checks.
const cancelCheckEvery = 4096

// Stats counts lines seen by a Reader.
type Stats struct {
	Lines   int64
	Valid   int64
	Skipped int64
}

// Reader yields the fields of each well-formed line of an RRF stream.
type Reader struct {
	br        *bufio.Reader
	minFields int
	stats     Stats
}

// NewReader wraps r. Lines with fewer than minFields fields are skipped.
func NewReader(r io.Reader, minFields int) *Reader {
	if minFields < 1 {
		minFields = 1
	}
	return &Reader{
		br:        bufio.NewReaderSize(r, 1<<16),
		minFields: minFields,
	}
}

// Next returns the fields of the next well-formed line, or io.EOF once the
// stream is exhausted.
func (r *Reader) Next() ([]string, error) {
	for {
		line, err := r.br.ReadString('\n')
		if len(line) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read line %d: %w", r.stats.Lines+1, err)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read line %d: %w", r.stats.Lines+1, err)
		}
		r.stats.Lines++

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			r.stats.Skipped++
			continue
		}
		fields := strings.Split(line, Delimiter)
		if len(fields) < r.minFields {
			r.stats.Skipped++
			continue
		}
		r.stats.Valid++
		return fields, nil
	}
}

// Stats reports the counts accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// ScanFile opens path and calls fn with the fields of every well-formed
// line. A missing or unreadable file is reported before fn is ever called.
// An error returned by fn stops the scan and is returned unchanged.
func ScanFile(ctx context.Context, path string, minFields int, fn func(fields []string) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stats{}, fmt.Errorf("%w: %s", internalerr.ErrInputMissing, path)
		}
		return Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return Scan(ctx, f, minFields, fn)
}

// Scan is ScanFile over an already open stream.
func Scan(ctx context.Context, r io.Reader, minFields int, fn func(fields []string) error) (Stats, error) {
	rd := NewReader(r, minFields)
	for n := 0; ; n++ {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return rd.Stats(), err
			}
		}
		fields, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return rd.Stats(), nil
		}
		if err != nil {
			return rd.Stats(), err
		}
		if err := fn(fields); err != nil {
			return rd.Stats(), err
		}
	}
}
