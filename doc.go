// Package nasc provides a dependency injection container for Go.
//
// Nasc (Old Irish: "Link" or "Bond") maps contract keys to construction
// strategies and lifetimes, builds instances on demand, wires their
// dependencies from constructor parameters or tagged struct fields, and
// tracks scoped instances for disposal.
//
// # Features
//
//   - Typed keys, with optional names for several bindings of one type
//   - Three lifetimes: Transient, Singleton and Scoped
//   - Constructor injection and `inject` struct tags, with defaults
//   - Explicit scope handles with ordered disposal
//   - Circular dependency detection with the full path
//   - Service providers and static graph validation
//   - Structured logging and OpenTelemetry spans
//
// # Quick Start
//
//	container := nasc.New()
//	err := nasc.Provide[Logger](container, nasc.LifetimeSingleton, NewConsoleLogger)
//	logger, err := nasc.Resolve[Logger](container)
//
// # Lifetimes
//
// Transient registrations build a new instance on every resolve. Singletons
// are built exactly once per container, even under concurrent first use.
// Scoped registrations build one instance per Scope and need a live scope:
//
//	scope := container.CreateScope()
//	defer scope.Dispose()
//	uow, err := nasc.Resolve[UnitOfWork](scope)
//
// InScope opens a scope, hands it to a callback and disposes it on every
// exit path:
//
//	err := container.InScope(ctx, func(ctx context.Context, s *nasc.Scope) error {
//	    repo, err := nasc.Resolve[Repository](s)
//	    ...
//	})
//
// # Auto-Wiring
//
// Constructor parameters are resolved by type. Parameters of type Resolver
// and context.Context receive the resolution in progress and its context:
//
//	func NewUserService(db Database, log Logger) *UserService
//
//	nasc.Provide[*UserService](container, nasc.LifetimeScoped, NewUserService,
//	    nasc.WithDefault(1, NopLogger{}))
//
// A pointer to a struct is a prototype: each resolve copies it and fills
// the fields tagged `inject`. Non-zero field values act as defaults:
//
//	type Handler struct {
//	    Repo  Repository `inject:""`
//	    Cache Cache      `inject:"optional,name=redis"`
//	}
//
// # Errors
//
// Failures are typed: *ConfigurationError, *ResolutionError, *ScopeError,
// *DependencyNotFoundError, *CircularDependencyError and
// *ConstructionError. Use errors.As to inspect them.
//
// # Thread Safety
//
// Resolution and scope operations are safe for concurrent use.
// Registration is expected during setup.
package nasc
