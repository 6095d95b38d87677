// Package registry resolves class references such as "validb.rules.TemplateRule"
// into live objects. Each reference is split at its last dot into a module and
// a symbol; classes are factories registered up front, and their arguments are
// decoded into a typed parameter struct.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrIllegalReference is returned for references without a module and a symbol.
	ErrIllegalReference = errors.New("illegal class reference")
	// ErrModuleNotFound is returned when no symbol is registered in a module.
	ErrModuleNotFound = errors.New("module not found")
	// ErrSymbolNotFound is returned when a module has no such symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrNotAClass is returned when a reference names a value instead of a class.
	ErrNotAClass = errors.New("not a class")
	// ErrDuplicate is returned when a reference is registered twice.
	ErrDuplicate = errors.New("already registered")
)

// CapabilityMismatchError reports a class that does not provide the requested
// capability.
type CapabilityMismatchError struct {
	Ref      string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *CapabilityMismatchError) Error() string {
	return fmt.Sprintf("%s: %s does not implement %s", e.Ref, e.Actual, e.Expected)
}

// Factory builds an instance from decoded configuration arguments.
type Factory func(args map[string]any) (any, error)

type symbol struct {
	class   bool
	typ     reflect.Type
	factory Factory
	value   any
}

// Registry maps module and symbol names to classes and values.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]map[string]symbol
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{modules: make(map[string]map[string]symbol)}
}

// Split parses ref into its module and symbol.
func Split(ref string) (module, name string, err error) {
	i := strings.LastIndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return "", "", fmt.Errorf("%w: %q (want module.Symbol)", ErrIllegalReference, ref)
	}
	return ref[:i], ref[i+1:], nil
}

func (r *Registry) add(ref string, s symbol) error {
	module, name, err := Split(ref)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	syms, ok := r.modules[module]
	if !ok {
		syms = make(map[string]symbol)
		r.modules[module] = syms
	}
	if _, dup := syms[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicate, ref)
	}
	syms[name] = s
	return nil
}

// RegisterFactory registers a class of type typ built by f.
func (r *Registry) RegisterFactory(ref string, typ reflect.Type, f Factory) error {
	if typ == nil || f == nil {
		return fmt.Errorf("register %s: type and factory are required", ref)
	}
	return r.add(ref, symbol{class: true, typ: typ, factory: f})
}

// RegisterValue registers a plain value. Loading it fails with ErrNotAClass.
func (r *Registry) RegisterValue(ref string, v any) error {
	return r.add(ref, symbol{typ: reflect.TypeOf(v), value: v})
}

// Register registers a class whose constructor takes a parameter struct P.
// The configuration arguments are decoded into P; unknown keys are an error.
func Register[T, P any](r *Registry, ref string, ctor func(P) (T, error)) error {
	return r.RegisterFactory(ref, reflect.TypeFor[T](), func(args map[string]any) (any, error) {
		var p P
		if err := Decode(args, &p); err != nil {
			return nil, err
		}
		return ctor(p)
	})
}

// Refs lists the registered references in sorted order.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var refs []string
	for module, syms := range r.modules {
		for name := range syms {
			refs = append(refs, module+"."+name)
		}
	}
	slices.Sort(refs)
	return refs
}

func (r *Registry) lookup(ref string) (symbol, error) {
	module, name, err := Split(ref)
	if err != nil {
		return symbol{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	syms, ok := r.modules[module]
	if !ok {
		return symbol{}, fmt.Errorf("%w: %s", ErrModuleNotFound, module)
	}
	s, ok := syms[name]
	if !ok {
		return symbol{}, fmt.Errorf("%w: %s in module %s", ErrSymbolNotFound, name, module)
	}
	return s, nil
}

// Load resolves ref, checks that its class provides T, and builds a new
// instance from args. Nothing is cached; every call constructs a new instance.
// Constructor errors are returned unchanged.
func Load[T any](r *Registry, ref string, args map[string]any) (T, error) {
	var zero T
	s, err := r.lookup(ref)
	if err != nil {
		return zero, err
	}
	if !s.class {
		return zero, fmt.Errorf("%w: %s is a %s value", ErrNotAClass, ref, s.typ)
	}

	expected := reflect.TypeFor[T]()
	if !provides(s.typ, expected) {
		return zero, &CapabilityMismatchError{Ref: ref, Expected: expected, Actual: s.typ}
	}

	inst, err := s.factory(args)
	if err != nil {
		return zero, err
	}
	out, ok := inst.(T)
	if !ok {
		return zero, &CapabilityMismatchError{Ref: ref, Expected: expected, Actual: reflect.TypeOf(inst)}
	}
	return out, nil
}

func provides(actual, expected reflect.Type) bool {
	if expected.Kind() == reflect.Interface {
		return actual.Implements(expected)
	}
	return actual.AssignableTo(expected)
}

// Decode copies args into the struct pointed to by out using its mapstructure
// tags. Keys without a matching field are rejected.
func Decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}
