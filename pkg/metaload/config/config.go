package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
	"github.com/cognicore/metaload/pkg/metaload/store"
)

// Standard distribution file names.
const (
	SemanticTypesFile = "MRSTY.RRF"
	ConceptsFile      = "MRCONSO.RRF"
)

// File is the YAML run configuration
type File struct {
	Sources     Sources     `yaml:"sources"`
	Store       StoreConfig `yaml:"store"`
	Defaults    Defaults    `yaml:"defaults"`
	Parallelism int         `yaml:"parallelism"`
	Categories  []Category  `yaml:"categories"`
}

// Sources locates the two input files. Explicit paths win over Dir.
type Sources struct {
	Dir           string `yaml:"dir"`
	SemanticTypes string `yaml:"semantic_types"`
	Concepts      string `yaml:"concepts"`
}

// StoreConfig selects the destination database
type StoreConfig struct {
	Driver   string `yaml:"driver"` // sqlite | postgres
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
	MaxIdle  int    `yaml:"max_idle"`
}

// Defaults apply to every category that does not override them
type Defaults struct {
	BatchSize            int           `yaml:"batch_size"`
	BatchDelay           time.Duration `yaml:"batch_delay"`
	MaxNameLength        int           `yaml:"max_name_length"`
	BatchRetries         int           `yaml:"batch_retries"`
	ContinueOnBatchError bool          `yaml:"continue_on_batch_error"`
	ProgressEvery        int           `yaml:"progress_every"`
}

// Category configures the import of one entity category
type Category struct {
	Name          string        `yaml:"name"`
	SemanticTypes []string      `yaml:"semantic_types"`
	Sources       []string      `yaml:"sources"`
	TermTypes     []string      `yaml:"term_types,omitempty"`
	BatchSize     int           `yaml:"batch_size,omitempty"`
	BatchDelay    time.Duration `yaml:"batch_delay,omitempty"`
	MaxNameLength int           `yaml:"max_name_length,omitempty"`
	BatchRetries  int           `yaml:"batch_retries,omitempty"`

	ContinueOnBatchError bool `yaml:"-"`
	ProgressEvery        int  `yaml:"-"`
}

// Inputs are the resolved input file paths
type Inputs struct {
	SemanticTypes string
	Concepts      string
}

// Load reads a run configuration from a YAML file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	return &f, nil
}

// Validate checks a single category
func (c Category) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("category name is required"))
	}
	if len(c.SemanticTypes) == 0 {
		errs = append(errs, fmt.Errorf("category %q: at least one semantic type is required", c.Name))
	}
	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("category %q: batch size must not be negative", c.Name))
	}
	if c.MaxNameLength < 0 || c.MaxNameLength > store.DefaultMaxNameLength {
		errs = append(errs, fmt.Errorf("category %q: max name length must be between 0 and %d", c.Name, store.DefaultMaxNameLength))
	}
	if c.BatchRetries < 0 {
		errs = append(errs, fmt.Errorf("category %q: batch retries must not be negative", c.Name))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, errors.Join(errs...))
}

// WithDefaults fills unset fields of c from d
func (c Category) WithDefaults(d Defaults) Category {
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BatchDelay == 0 {
		c.BatchDelay = d.BatchDelay
	}
	if c.MaxNameLength == 0 {
		c.MaxNameLength = d.MaxNameLength
	}
	if c.BatchRetries == 0 {
		c.BatchRetries = d.BatchRetries
	}
	c.ContinueOnBatchError = c.ContinueOnBatchError || d.ContinueOnBatchError
	if c.ProgressEvery == 0 {
		c.ProgressEvery = d.ProgressEvery
	}
	return c
}

// Resolve returns the categories to run with defaults applied. When the
// file lists none, the built-in table is used. A non-empty only restricts the
// result to those names, in the order given.
func (f *File) Resolve(only []string) ([]Category, error) {
	cats := f.Categories
	if len(cats) == 0 {
		cats = DefaultCategories()
	}

	byName := make(map[string]Category, len(cats))
	var ordered []string
	for _, c := range cats {
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", internalerr.ErrInvalidConfig, c.Name)
		}
		byName[c.Name] = c
		ordered = append(ordered, c.Name)
	}
	if len(only) > 0 {
		ordered = ordered[:0]
		for _, name := range only {
			if _, ok := byName[name]; !ok {
				return nil, fmt.Errorf("%w: unknown category %q", internalerr.ErrInvalidConfig, name)
			}
			ordered = append(ordered, name)
		}
	}

	out := make([]Category, 0, len(ordered))
	for _, name := range ordered {
		c := byName[name].WithDefaults(f.Defaults)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Resolve finds the input files. A directory is searched for the standard
// file names, preferring its META subdirectory.
func (s Sources) Resolve() (Inputs, error) {
	in := Inputs{SemanticTypes: s.SemanticTypes, Concepts: s.Concepts}
	if s.Dir != "" {
		dir := s.Dir
		if fi, err := os.Stat(filepath.Join(dir, "META")); err == nil && fi.IsDir() {
			dir = filepath.Join(dir, "META")
		}
		if in.SemanticTypes == "" {
			in.SemanticTypes = filepath.Join(dir, SemanticTypesFile)
		}
		if in.Concepts == "" {
			in.Concepts = filepath.Join(dir, ConceptsFile)
		}
	}
	if in.SemanticTypes == "" || in.Concepts == "" {
		return in, fmt.Errorf("%w: both input files (or a source directory) are required", internalerr.ErrInvalidConfig)
	}
	return in, nil
}

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, msg)
}
