package nasc

import (
	"fmt"
	"sync"
	"testing"
)

// Benchmark types
type BenchLogger interface {
	Log(string)
}

type BenchConsoleLogger struct {
	prefix string
}

func (l *BenchConsoleLogger) Log(msg string) {
	_ = fmt.Sprintf("%s: %s", l.prefix, msg)
}

type BenchDatabase interface {
	Query(string) string
}

type BenchPostgresDB struct {
	Logger BenchLogger `inject:""`
}

func (db *BenchPostgresDB) Query(q string) string {
	return "result"
}

type BenchService interface {
	Process(string) string
}

type BenchUserService struct {
	DB     BenchDatabase `inject:""`
	Logger BenchLogger   `inject:""`
}

func (s *BenchUserService) Process(data string) string {
	return s.DB.Query(data)
}

var (
	benchLoggerKey   = KeyOf((*BenchLogger)(nil))
	benchDatabaseKey = KeyOf((*BenchDatabase)(nil))
	benchServiceKey  = KeyOf((*BenchService)(nil))
)

func newBenchContainer() *Container {
	container := New()
	_ = container.RegisterSingleton(benchLoggerKey, &BenchConsoleLogger{prefix: "bench"})
	_ = container.RegisterSingleton(benchDatabaseKey, &BenchPostgresDB{})
	return container
}

// BenchmarkSingletonResolution benchmarks singleton instance retrieval.
func BenchmarkSingletonResolution(b *testing.B) {
	container := newBenchContainer()

	// Warm up the cache
	_, _ = container.Resolve(benchLoggerKey)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(benchLoggerKey)
	}
}

// BenchmarkTransientResolution benchmarks prototype copies.
func BenchmarkTransientResolution(b *testing.B) {
	container := New()
	_ = container.RegisterTransient(benchLoggerKey, &BenchConsoleLogger{prefix: "bench"})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(benchLoggerKey)
	}
}

// BenchmarkConstructorResolution benchmarks auto-wired constructors.
func BenchmarkConstructorResolution(b *testing.B) {
	container := newBenchContainer()
	_ = container.RegisterTransient(benchServiceKey, func(db BenchDatabase, l BenchLogger) *BenchUserService {
		return &BenchUserService{DB: db, Logger: l}
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(benchServiceKey)
	}
}

// BenchmarkAutoWireResolution benchmarks tagged field injection.
func BenchmarkAutoWireResolution(b *testing.B) {
	container := newBenchContainer()
	_ = container.RegisterTransient(benchServiceKey, &BenchUserService{})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(benchServiceKey)
	}
}

// BenchmarkFactoryResolution benchmarks factory registrations.
func BenchmarkFactoryResolution(b *testing.B) {
	container := newBenchContainer()
	_ = container.RegisterTransient(benchServiceKey, FactoryFunc(func(r Resolver) (interface{}, error) {
		db, err := Resolve[BenchDatabase](r)
		if err != nil {
			return nil, err
		}
		return &BenchUserService{DB: db}, nil
	}))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(benchServiceKey)
	}
}

// BenchmarkGenericResolution benchmarks the typed helper.
func BenchmarkGenericResolution(b *testing.B) {
	container := newBenchContainer()
	_, _ = Resolve[BenchLogger](container)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = Resolve[BenchLogger](container)
	}
}

// BenchmarkNamedResolution benchmarks named keys.
func BenchmarkNamedResolution(b *testing.B) {
	container := New()
	for i := 0; i < 10; i++ {
		_ = container.RegisterSingleton(benchLoggerKey.Named(fmt.Sprintf("logger-%d", i)), &BenchConsoleLogger{})
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = ResolveNamed[BenchLogger](container, "logger-5")
	}
}

// BenchmarkScopedResolution benchmarks a scope lifecycle with one scoped build.
func BenchmarkScopedResolution(b *testing.B) {
	container := newBenchContainer()
	_ = container.RegisterScoped(benchServiceKey, &BenchUserService{})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		scope := container.CreateScope()
		_, _ = scope.Resolve(benchServiceKey)
		_, _ = scope.Resolve(benchServiceKey)
		_ = scope.Dispose()
	}
}

// BenchmarkDeepDependencyGraph benchmarks a chain of transient constructors.
func BenchmarkDeepDependencyGraph(b *testing.B) {
	container := New()
	const depth = 10
	keys := make([]Key, depth)
	for i := range keys {
		keys[i] = benchLoggerKey.Named(fmt.Sprintf("level-%d", i))
	}
	_ = container.RegisterTransient(keys[0], &BenchConsoleLogger{})
	for i := 1; i < depth; i++ {
		prev := keys[i-1]
		_ = container.RegisterTransient(keys[i], FactoryFunc(func(r Resolver) (interface{}, error) {
			if _, err := r.Resolve(prev); err != nil {
				return nil, err
			}
			return &BenchConsoleLogger{}, nil
		}))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.Resolve(keys[depth-1])
	}
}

// BenchmarkResolveTagged benchmarks tag lookups.
func BenchmarkResolveTagged(b *testing.B) {
	container := New()
	for i := 0; i < 5; i++ {
		_ = container.RegisterSingleton(benchLoggerKey.Named(fmt.Sprintf("logger-%d", i)),
			&BenchConsoleLogger{}, WithTags("loggers"))
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = container.ResolveTagged("loggers")
	}
}

// BenchmarkConcurrentResolution benchmarks parallel singleton reads.
func BenchmarkConcurrentResolution(b *testing.B) {
	container := newBenchContainer()
	_, _ = container.Resolve(benchDatabaseKey)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = container.Resolve(benchDatabaseKey)
		}
	})
}

// BenchmarkConcurrentSingletonCreation benchmarks first-use contention.
func BenchmarkConcurrentSingletonCreation(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		container := newBenchContainer()
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = container.Resolve(benchDatabaseKey)
			}()
		}
		wg.Wait()
	}
}

// BenchmarkReflectionCache benchmarks cached field lookups.
func BenchmarkReflectionCache(b *testing.B) {
	typ := TypeKey[BenchUserService]().Type
	_ = fieldCache.getFieldInfo(typ)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = fieldCache.getFieldInfo(typ)
	}
}

// BenchmarkValidation benchmarks static graph validation.
func BenchmarkValidation(b *testing.B) {
	container := newBenchContainer()
	_ = container.RegisterTransient(benchServiceKey, &BenchUserService{})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = container.Validate()
	}
}
