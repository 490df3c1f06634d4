package sink

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/nmlc/internal/ir"
)

// Format names.
const (
	FormatNFO  = "nfo"
	FormatGRF  = "grf"
	FormatJSON = "json"
	FormatDB   = "db"
)

// Factory opens a sink writing to path.
type Factory func(path string) (ir.Sink, error)

// Output is one configured destination.
type Output struct {
	Format string
	Path   string
}

func (o Output) String() string {
	return o.Format + ":" + o.Path
}

// Registry maps format names to factories.
//
// Thread-safety: Registry is safe for concurrent use via internal mutex.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry registers the file formats of this package.
// The db format lives in the store package and is registered by the caller.
func DefaultRegistry(nfo NFOOptions) *Registry {
	r := NewRegistry()
	r.Register(FormatNFO, func(path string) (ir.Sink, error) {
		return OpenNFOFile(path, nfo)
	})
	r.Register(FormatGRF, func(path string) (ir.Sink, error) {
		return OpenGRFFile(path)
	})
	r.Register(FormatJSON, func(path string) (ir.Sink, error) {
		return OpenJSONFile(path)
	})
	return r
}

// Register installs f for format, replacing any previous factory.
func (r *Registry) Register(format string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[format] = f
}

// Unregister removes format.
func (r *Registry) Unregister(format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, format)
}

// Formats returns the registered format names, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the factory for format.
func (r *Registry) Lookup(format string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[format]
	if !ok {
		return nil, &ConfigError{
			Code:    ErrCodeEncoderUnavailable,
			Message: fmt.Sprintf("no encoder available for %q output", format),
		}
	}
	return f, nil
}

// Check verifies every output has a registered factory without opening any.
func (r *Registry) Check(outputs []Output) error {
	for _, o := range outputs {
		if _, err := r.Lookup(o.Format); err != nil {
			var ce *ConfigError
			if errors.As(err, &ce) {
				ce.Path = o.Path
			}
			return err
		}
	}
	return nil
}

// Open opens a sink for every output, in order. If any open fails, the sinks
// already opened are discarded.
func (r *Registry) Open(outputs []Output) ([]ir.Sink, error) {
	if err := r.Check(outputs); err != nil {
		return nil, err
	}
	sinks := make([]ir.Sink, 0, len(outputs))
	for _, o := range outputs {
		f, _ := r.Lookup(o.Format)
		s, err := f(o.Path)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open %s: %w", o, err), DiscardAll(sinks))
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// DiscardAll releases sinks without committing them.
func DiscardAll(sinks []ir.Sink) error {
	var errs []error
	for _, s := range sinks {
		var err error
		if d, ok := s.(ir.Discarder); ok {
			err = d.Discard()
		} else {
			err = s.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dedupe drops repeated outputs so no path is opened twice. Paths compare
// after filepath.Clean; one path asked for in two formats is a ConfigError.
func Dedupe(outputs []Output) ([]Output, error) {
	seen := make(map[string]string, len(outputs))
	out := make([]Output, 0, len(outputs))
	for _, o := range outputs {
		path := filepath.Clean(o.Path)
		if format, ok := seen[path]; ok {
			if format == o.Format {
				continue
			}
			return nil, &ConfigError{
				Code:    ErrCodeDuplicateOutput,
				Path:    o.Path,
				Message: fmt.Sprintf("requested as both %s and %s output", format, o.Format),
			}
		}
		seen[path] = o.Format
		out = append(out, o)
	}
	return out, nil
}

// FormatForPath picks the output format from a file extension.
func FormatForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".nfo":
		return FormatNFO, nil
	case ".grf":
		return FormatGRF, nil
	case ".json":
		return FormatJSON, nil
	case ".db", ".sqlite":
		return FormatDB, nil
	case ".nml":
		return "", &ConfigError{
			Code:    ErrCodeNMLOutput,
			Path:    path,
			Message: "writing nml output using -o/--output is not possible, use --nml",
		}
	default:
		return "", &ConfigError{
			Code:    ErrCodeUnknownExtension,
			Path:    path,
			Message: fmt.Sprintf("unknown output format %q", ext),
		}
	}
}

// OutputForPath builds an Output from a file path.
func OutputForPath(path string) (Output, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Output{}, err
	}
	return Output{Format: format, Path: path}, nil
}
