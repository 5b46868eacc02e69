package config

import (
	"fmt"
	"strings"
)

// Loader merges an optional run file with command-line overrides
type Loader struct {
	Path string

	SourceDir         string
	SemanticTypesPath string
	ConceptsPath      string

	StoreDriver string
	StoreDSN    string
	Parallelism int

	// Only restricts the run to these category names
	Only []string
}

// Run is a fully resolved import run
type Run struct {
	Inputs      Inputs
	Store       StoreConfig
	Parallelism int
	Categories  []Category
}

// Load reads the run file, if any, applies the overrides and resolves
// inputs and categories.
func (l *Loader) Load() (*Run, error) {
	f := &File{}
	if l.Path != "" {
		loaded, err := Load(l.Path)
		if err != nil {
			return nil, fmt.Errorf("load run file: %w", err)
		}
		f = loaded
	}

	if l.SourceDir != "" {
		f.Sources.Dir = l.SourceDir
	}
	if l.SemanticTypesPath != "" {
		f.Sources.SemanticTypes = l.SemanticTypesPath
	}
	if l.ConceptsPath != "" {
		f.Sources.Concepts = l.ConceptsPath
	}
	if l.StoreDriver != "" {
		f.Store.Driver = l.StoreDriver
	}
	if l.StoreDSN != "" {
		f.Store.DSN = l.StoreDSN
	}
	if l.Parallelism > 0 {
		f.Parallelism = l.Parallelism
	}

	inputs, err := f.Sources.Resolve()
	if err != nil {
		return nil, err
	}
	store, err := f.Store.resolve()
	if err != nil {
		return nil, err
	}
	cats, err := f.Resolve(l.Only)
	if err != nil {
		return nil, err
	}

	par := f.Parallelism
	if par <= 0 {
		par = 1
	}
	return &Run{Inputs: inputs, Store: store, Parallelism: par, Categories: cats}, nil
}

// Store loads only the destination settings, for commands that do not read
// the input files.
func (l *Loader) Store() (StoreConfig, error) {
	var sc StoreConfig
	if l.Path != "" {
		f, err := Load(l.Path)
		if err != nil {
			return sc, fmt.Errorf("load run file: %w", err)
		}
		sc = f.Store
	}
	if l.StoreDriver != "" {
		sc.Driver = l.StoreDriver
	}
	if l.StoreDSN != "" {
		sc.DSN = l.StoreDSN
	}
	return sc.resolve()
}

func (s StoreConfig) resolve() (StoreConfig, error) {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = "sqlite"
	}
	switch s.Driver {
	case "sqlite":
		if s.DSN == "" {
			s.DSN = "metaload.db"
		}
	case "postgres", "postgresql":
		s.Driver = "postgres"
		if s.DSN == "" {
			return s, errInvalid("postgres store requires a dsn")
		}
	default:
		return s, errInvalid(fmt.Sprintf("unknown store driver %q", s.Driver))
	}
	return s, nil
}
