package eform

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Compile-time interface check.
var _ interface {
	Acquire() *Generator
	Release(*Generator)
	Size() int
	Close() error
} = (*GeneratorPool)(nil)

// countingPool builds a pool of mock-backed generators and counts creations.
func countingPool(t *testing.T, n int) (*GeneratorPool, *atomic.Int32, *mockConverter) {
	t.Helper()
	var created atomic.Int32
	conv := &mockConverter{}
	p := newPool(n, func() *Generator {
		created.Add(1)
		return &Generator{converter: conv, logger: discardLogger()}
	})
	return p, &created, conv
}

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	gomaxprocs := runtime.GOMAXPROCS(0)

	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{name: "explicit takes priority", workers: 4, want: 4},
		{name: "explicit can exceed max", workers: 16, want: 16},
		{name: "zero uses auto calculation", workers: 0, want: min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
		{name: "negative uses auto calculation", workers: -3, want: min(max(gomaxprocs/cpuDivisor, MinPoolSize), MaxPoolSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ResolvePoolSize(tt.workers); got != tt.want {
				t.Errorf("ResolvePoolSize(%d) = %d, want %d", tt.workers, got, tt.want)
			}
		})
	}
}

func TestGeneratorPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	pool, _, _ := countingPool(t, 2)
	defer pool.Close()

	g1 := pool.Acquire()
	g2 := pool.Acquire()
	if g1 == nil || g2 == nil {
		t.Fatal("Acquire() returned nil")
	}
	if g1 == g2 {
		t.Error("expected different generator instances")
	}

	pool.Release(g1)
	if g3 := pool.Acquire(); g3 != g1 {
		t.Error("expected to get back the released generator")
	}
}

func TestGeneratorPool_Size(t *testing.T) {
	t.Parallel()

	for _, n := range []int{-1, 0, 1, 5} {
		pool := newPool(n, func() *Generator { return &Generator{} })
		want := max(n, 1)
		if got := pool.Size(); got != want {
			t.Errorf("newPool(%d).Size() = %d, want %d", n, got, want)
		}
	}
}

func TestGeneratorPool_LazyCreation(t *testing.T) {
	t.Parallel()

	pool, created, _ := countingPool(t, 4)
	defer pool.Close()

	if got := created.Load(); got != 0 {
		t.Fatalf("created %d generators before any Acquire", got)
	}
	g := pool.Acquire()
	pool.Release(g)
	_ = pool.Acquire()
	if got := created.Load(); got != 1 {
		t.Errorf("created %d generators, want 1 (reuse before create)", got)
	}
}

func TestGeneratorPool_BlocksWhenExhausted(t *testing.T) {
	t.Parallel()

	pool, created, _ := countingPool(t, 1)
	defer pool.Close()

	g := pool.Acquire()
	got := make(chan *Generator)
	go func() { got <- pool.Acquire() }()

	select {
	case <-got:
		t.Fatal("Acquire() returned while the only generator was busy")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(g)
	if g2 := <-got; g2 != g {
		t.Error("waiting Acquire() did not receive the released generator")
	}
	if created.Load() != 1 {
		t.Errorf("created %d generators, want 1", created.Load())
	}
}

func TestGeneratorPool_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	pool, created, _ := countingPool(t, 3)
	defer pool.Close()

	var (
		wg     sync.WaitGroup
		active atomic.Int32
		peak   atomic.Int32
	)
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := pool.Acquire()
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			pool.Release(g)
		}()
	}
	wg.Wait()

	if peak.Load() > 3 {
		t.Errorf("peak concurrent holders = %d, want <= 3", peak.Load())
	}
	if created.Load() > 3 {
		t.Errorf("created %d generators, want <= 3", created.Load())
	}
}

func TestGeneratorPool_Close(t *testing.T) {
	t.Parallel()

	pool, _, conv := countingPool(t, 2)
	g1 := pool.Acquire()
	_ = pool.Acquire()
	pool.Release(g1)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if conv.closed != 2 {
		t.Errorf("closed %d generators, want 2", conv.closed)
	}
	if err := pool.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if conv.closed != 2 {
		t.Errorf("second Close() closed generators again (%d)", conv.closed)
	}

	// Release after close must not panic on the closed channel.
	pool.Release(g1)
}

func TestGeneratorPool_ReleaseDuringClose(t *testing.T) {
	t.Parallel()

	pool, _, _ := countingPool(t, 4)
	held := make([]*Generator, 4)
	for i := range held {
		held[i] = pool.Acquire()
	}

	var wg sync.WaitGroup
	for _, g := range held {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Release(g)
		}()
	}
	if err := pool.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	wg.Wait()

	if g := pool.Acquire(); g != nil {
		t.Errorf("Acquire() after Close = %p, want nil", g)
	}
}
