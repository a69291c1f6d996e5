package snbuild

import "fmt"

// BackendConstructor creates a backend for one resolution.
type BackendConstructor func(desc *PlatformDescriptor, sig Signals) Builder

// Backend names accepted by the SigBackend signal.
const (
	BackendCc    = "cc"
	BackendCmake = "cmake"
)

// BackendFactory manages the registration and selection of build backends.
//
// # Usage
//
// Create a factory with both standard backends:
//
//	factory := snbuild.NewBackendFactory()
//
// Or create an empty factory and register a custom backend:
//
//	factory := &snbuild.BackendFactory{}
//	factory.Register("mybackend", NewMyBackend)
//
// # Thread Safety
//
// BackendFactory is NOT thread-safe for registration. Register all backends
// before concurrent use; lookups afterwards are safe.
type BackendFactory struct {
	names        []string
	constructors map[string]BackendConstructor
}

// NewBackendFactory creates a factory with both standard backends
// registered: "cc" (direct compiler driver) and "cmake" (generator driver).
func NewBackendFactory() *BackendFactory {
	factory := &BackendFactory{}

	factory.Register(BackendCc, func(desc *PlatformDescriptor, sig Signals) Builder {
		return NewCcBuilder(desc, sig)
	})
	factory.Register(BackendCmake, func(desc *PlatformDescriptor, sig Signals) Builder {
		return NewCmakeBuilder(desc, sig)
	})

	return factory
}

// Register adds a backend constructor under a selection name. Registering an
// existing name replaces the constructor.
func (f *BackendFactory) Register(name string, ctor BackendConstructor) {
	if f.constructors == nil {
		f.constructors = map[string]BackendConstructor{}
	}
	if _, exists := f.constructors[name]; !exists {
		f.names = append(f.names, name)
	}
	f.constructors[name] = ctor
}

// BackendFor returns the constructor selected by name. An empty name selects
// the default generator backend.
func (f *BackendFactory) BackendFor(name string) (BackendConstructor, error) {
	if name == "" {
		name = BackendCmake
	}
	ctor, ok := f.constructors[name]
	if !ok {
		return nil, fmt.Errorf("no backend registered for %q (have %v)", name, f.names)
	}
	return ctor, nil
}

// ListBackends returns the registered backend names in registration order.
// The returned slice is a copy.
func (f *BackendFactory) ListBackends() []string {
	return append([]string{}, f.names...)
}
