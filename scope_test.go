package nasc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// Test types for scoping and cleanup
type disposableService struct {
	id       int
	disposed int
}

func (d *disposableService) Dispose() error {
	d.disposed++
	if d.disposed > 1 {
		return errors.New("already disposed")
	}
	return nil
}

type closerService struct {
	closed bool
}

func (c *closerService) Close() error {
	c.closed = true
	return nil
}

type failingDisposable struct {
	name string
}

func (f *failingDisposable) Dispose() error {
	return errors.New("disposal failed")
}

// orderRecorder collects disposal order across services.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (o *orderRecorder) record(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.order = append(o.order, name)
}

type recordingService struct {
	name     string
	recorder *orderRecorder
}

func (r *recordingService) Dispose() error {
	r.recorder.record(r.name)
	return nil
}

var (
	disposableKey = TypeKey[*disposableService]()
	closerKey     = TypeKey[*closerService]()
)

// Same scope returns the same scoped instance; another scope gets its own.
func TestScope_Isolation(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	s1 := container.CreateScope()
	defer s1.Dispose()

	a, err := s1.Resolve(requestKey)
	if err != nil {
		t.Fatalf("Resolve() in scope returned error: %v", err)
	}
	b, _ := s1.Resolve(requestKey)
	if a != b {
		t.Error("Expected the same instance within one scope")
	}

	s2 := container.CreateScope()
	defer s2.Dispose()

	c, _ := s2.Resolve(requestKey)
	if a == c {
		t.Error("Expected different instances in different scopes")
	}
}

func TestScope_UniqueIDs(t *testing.T) {
	container := New()
	s1 := container.CreateScope()
	s2 := container.CreateScope()

	if s1.ID() == "" || s1.ID() == s2.ID() {
		t.Errorf("Expected distinct non-empty IDs, got %q and %q", s1.ID(), s2.ID())
	}
	if s1.Container() != container {
		t.Error("Scope.Container() should return the owning container")
	}
}

func TestScope_ScopedWithoutScope(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	_, err := container.Resolve(requestKey)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Expected ScopeError, got %T: %v", err, err)
	}
	if scopeErr.Key != requestKey {
		t.Errorf("ScopeError.Key = %v, want %v", scopeErr.Key, requestKey)
	}
}

func TestScope_ResolveAfterDispose(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	scope := container.CreateScope()
	if err := scope.Dispose(); err != nil {
		t.Fatalf("Dispose() returned error: %v", err)
	}

	_, err := scope.Resolve(requestKey)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Expected ScopeError, got %T: %v", err, err)
	}
	if !scope.IsDisposed() || scope.State() != ScopeDisposed {
		t.Error("scope should report disposed state")
	}
}

func TestScope_SingletonAndTransientInsideScope(t *testing.T) {
	container := New()
	_ = container.Register(loggerKey, &ConsoleLogger{}, LifetimeSingleton)
	_ = container.Register(databaseKey, &MockDB{}, LifetimeTransient)

	scope := container.CreateScope()
	defer scope.Dispose()

	fromScope, _ := scope.Resolve(loggerKey)
	fromContainer, _ := container.Resolve(loggerKey)
	if fromScope != fromContainer {
		t.Error("singletons must be shared between scope and container")
	}

	d1, _ := scope.Resolve(databaseKey)
	d2, _ := scope.Resolve(databaseKey)
	if d1.(*MockDB) == d2.(*MockDB) {
		t.Error("transients must not be cached by a scope")
	}
}

func TestScope_DisposeExactlyOnce(t *testing.T) {
	container := New()
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	scope := container.CreateScope()
	instance, _ := scope.Resolve(disposableKey)
	svc := instance.(*disposableService)

	if err := scope.Dispose(); err != nil {
		t.Fatalf("Dispose() returned error: %v", err)
	}
	if err := scope.Dispose(); err != nil {
		t.Fatalf("second Dispose() returned error: %v", err)
	}

	if svc.disposed != 1 {
		t.Errorf("Expected 1 disposal, got %d", svc.disposed)
	}
}

func TestScope_DisposeCloser(t *testing.T) {
	container := New()
	_ = container.Register(closerKey, &closerService{}, LifetimeScoped)

	scope := container.CreateScope()
	instance, _ := scope.Resolve(closerKey)
	_ = scope.Dispose()

	if !instance.(*closerService).closed {
		t.Error("io.Closer instance was not closed")
	}
}

func TestScope_DisposeReverseOrder(t *testing.T) {
	container := New()
	recorder := &orderRecorder{}

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_ = container.Register(TypeKey[*recordingService]().Named(name), FactoryFunc(func(r Resolver) (interface{}, error) {
			return &recordingService{name: name, recorder: recorder}, nil
		}), LifetimeScoped)
	}

	scope := container.CreateScope()
	for _, name := range []string{"first", "second", "third"} {
		if _, err := scope.Resolve(TypeKey[*recordingService]().Named(name)); err != nil {
			t.Fatalf("Resolve(%s) returned error: %v", name, err)
		}
	}
	_ = scope.Dispose()

	got := strings.Join(recorder.order, ",")
	if got != "third,second,first" {
		t.Errorf("disposal order = %s, want third,second,first", got)
	}
}

func TestScope_DisposeErrorsAreJoined(t *testing.T) {
	container := New()
	_ = container.Register(TypeKey[*failingDisposable]().Named("a"), &failingDisposable{name: "a"}, LifetimeScoped)
	_ = container.Register(TypeKey[*failingDisposable]().Named("b"), &failingDisposable{name: "b"}, LifetimeScoped)
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	scope := container.CreateScope()
	_, _ = scope.Resolve(TypeKey[*failingDisposable]().Named("a"))
	healthy, _ := scope.Resolve(disposableKey)
	_, _ = scope.Resolve(TypeKey[*failingDisposable]().Named("b"))

	err := scope.Dispose()
	if err == nil {
		t.Fatal("Expected joined disposal error")
	}
	if n := strings.Count(err.Error(), "disposal failed"); n != 2 {
		t.Errorf("Expected 2 disposal failures in error, got %d: %v", n, err)
	}
	if healthy.(*disposableService).disposed != 1 {
		t.Error("a failing disposal must not stop the others")
	}
}

func TestScope_WithDisposerTakesPrecedence(t *testing.T) {
	container := New()
	var custom int
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped,
		WithDisposer(func(instance interface{}) error {
			custom++
			return nil
		}))

	scope := container.CreateScope()
	instance, _ := scope.Resolve(disposableKey)
	_ = scope.Dispose()

	if custom != 1 {
		t.Errorf("Expected custom disposer to run once, got %d", custom)
	}
	if instance.(*disposableService).disposed != 0 {
		t.Error("Dispose method should not run when a disposer is configured")
	}
}

func TestScope_ChildScopes(t *testing.T) {
	container := New()
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	parent := container.CreateScope()
	child := parent.CreateScope()

	if child.Parent() != parent {
		t.Fatal("child.Parent() should be the parent scope")
	}

	p, _ := parent.Resolve(disposableKey)
	c, _ := child.Resolve(disposableKey)
	if p == c {
		t.Error("child scope must not share scoped instances with parent")
	}

	if err := parent.Dispose(); err != nil {
		t.Fatalf("Dispose() returned error: %v", err)
	}
	if !child.IsDisposed() {
		t.Error("child scope should be disposed with its parent")
	}
	if c.(*disposableService).disposed != 1 || p.(*disposableService).disposed != 1 {
		t.Error("both parent and child instances should be disposed once")
	}
}

func TestScope_ChildDisposedFirst(t *testing.T) {
	container := New()
	recorder := &orderRecorder{}
	key := TypeKey[*recordingService]()
	var n int
	_ = container.Register(key, FactoryFunc(func(r Resolver) (interface{}, error) {
		n++
		name := "parent"
		if n > 1 {
			name = "child"
		}
		return &recordingService{name: name, recorder: recorder}, nil
	}), LifetimeScoped)

	parent := container.CreateScope()
	_, _ = parent.Resolve(key)
	child := parent.CreateScope()
	_, _ = child.Resolve(key)

	_ = parent.Dispose()

	if got := strings.Join(recorder.order, ","); got != "child,parent" {
		t.Errorf("disposal order = %s, want child,parent", got)
	}
}

func TestScope_ChildOfDisposedParent(t *testing.T) {
	container := New()
	parent := container.CreateScope()
	_ = parent.Dispose()

	child := parent.CreateScope()
	if !child.IsDisposed() {
		t.Error("a child of a disposed scope should be born disposed")
	}
}

func TestScope_SingletonCannotCaptureScoped(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)
	_ = container.Register(loggerKey, FactoryFunc(func(r Resolver) (interface{}, error) {
		if _, err := r.Resolve(requestKey); err != nil {
			return nil, err
		}
		return &ConsoleLogger{}, nil
	}), LifetimeSingleton)

	scope := container.CreateScope()
	defer scope.Dispose()

	_, err := scope.Resolve(loggerKey)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Expected ScopeError, got %T: %v", err, err)
	}
	if !strings.Contains(scopeErr.Reason, "singleton") {
		t.Errorf("ScopeError.Reason should mention the singleton, got %q", scopeErr.Reason)
	}
}

func TestScope_OverwriteRebuildsInScope(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{id: "old"}, LifetimeScoped)

	scope := container.CreateScope()
	defer scope.Dispose()

	old, _ := scope.Resolve(requestKey)
	_ = container.Register(requestKey, &RequestContextImpl{id: "new"}, LifetimeScoped)
	current, _ := scope.Resolve(requestKey)

	if old == current {
		t.Fatal("scope served an instance from a replaced registration")
	}
	if current.(RequestContext).RequestID() != "new" {
		t.Errorf("RequestID() = %q, want new", current.(RequestContext).RequestID())
	}
}

func TestScope_ConcurrentResolveBuildsOnce(t *testing.T) {
	container := New()
	var mu sync.Mutex
	builds := 0
	_ = container.Register(requestKey, FactoryFunc(func(r Resolver) (interface{}, error) {
		mu.Lock()
		builds++
		mu.Unlock()
		return &RequestContextImpl{}, nil
	}), LifetimeScoped)

	scope := container.CreateScope()
	defer scope.Dispose()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := scope.Resolve(requestKey); err != nil {
				t.Errorf("Resolve() returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Errorf("Expected 1 scoped build, got %d", builds)
	}
}

func TestInScope_DisposesOnReturn(t *testing.T) {
	container := New()
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	var svc *disposableService
	err := container.InScope(context.Background(), func(ctx context.Context, s *Scope) error {
		instance, err := Resolve[*disposableService](s)
		svc = instance
		return err
	})
	if err != nil {
		t.Fatalf("InScope() returned error: %v", err)
	}
	if svc.disposed != 1 {
		t.Error("scoped instance was not disposed when InScope returned")
	}
}

func TestInScope_DisposesOnError(t *testing.T) {
	container := New()
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	sentinel := errors.New("handler failed")
	var svc *disposableService
	err := container.InScope(context.Background(), func(ctx context.Context, s *Scope) error {
		svc, _ = Resolve[*disposableService](s)
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Fatalf("Expected handler error, got %v", err)
	}
	if svc.disposed != 1 {
		t.Error("scoped instance was not disposed after an error")
	}
}

func TestInScope_DisposesOnPanic(t *testing.T) {
	container := New()
	_ = container.Register(disposableKey, &disposableService{}, LifetimeScoped)

	var svc *disposableService
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate out of InScope")
			}
		}()
		_ = container.InScope(context.Background(), func(ctx context.Context, s *Scope) error {
			svc, _ = Resolve[*disposableService](s)
			panic("handler panicked")
		})
	}()

	if svc == nil || svc.disposed != 1 {
		t.Error("scoped instance was not disposed after a panic")
	}
}

func TestInScope_ContextCarriesScope(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	err := container.InScope(context.Background(), func(ctx context.Context, s *Scope) error {
		if ScopeFromContext(ctx) != s {
			t.Error("context should carry the active scope")
		}
		fromCtx, err := container.ResolveContext(ctx, requestKey)
		if err != nil {
			return err
		}
		fromScope, _ := s.Resolve(requestKey)
		if fromCtx != fromScope {
			t.Error("ResolveContext should use the scope carried by ctx")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InScope() returned error: %v", err)
	}
}

func TestInScope_Nested(t *testing.T) {
	container := New()
	_ = container.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	err := container.InScope(context.Background(), func(outerCtx context.Context, outer *Scope) error {
		outerInstance, _ := outer.Resolve(requestKey)

		err := container.InScope(outerCtx, func(innerCtx context.Context, inner *Scope) error {
			if inner.Parent() != outer {
				t.Error("inner scope should be nested in the outer scope")
			}
			innerInstance, _ := container.ResolveContext(innerCtx, requestKey)
			if innerInstance == outerInstance {
				t.Error("inner scope must get its own scoped instance")
			}
			return nil
		})
		if err != nil {
			return err
		}

		if ScopeFromContext(outerCtx) != outer {
			t.Error("outer context should still carry the outer scope")
		}
		again, _ := container.ResolveContext(outerCtx, requestKey)
		if again != outerInstance {
			t.Error("outer scope instance changed after the inner scope ended")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InScope() returned error: %v", err)
	}
}

func TestScopeFromContext_Empty(t *testing.T) {
	if ScopeFromContext(context.Background()) != nil {
		t.Error("background context should carry no scope")
	}
}

func TestResolveContext_IgnoresForeignScope(t *testing.T) {
	a := New()
	b := New()
	_ = b.Register(requestKey, &RequestContextImpl{}, LifetimeScoped)

	ctx := WithScope(context.Background(), a.CreateScope())
	_, err := b.ResolveContext(ctx, requestKey)
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) {
		t.Fatalf("Expected ScopeError for scope of another container, got %v", err)
	}
}

func TestScopeState_String(t *testing.T) {
	if ScopeActive.String() != "active" || ScopeDisposed.String() != "disposed" {
		t.Error("unexpected ScopeState names")
	}
}
