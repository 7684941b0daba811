package eform

import (
	"errors"
	"runtime"
	"sync"
)

// Pool size bounds used by ResolvePoolSize.
const (
	MinPoolSize = 1

	// MaxPoolSize caps the number of Chrome processes. Each one holds a few
	// hundred megabytes once a page has been printed.
	MaxPoolSize = 8

	// cpuDivisor leaves a core per generator to Chrome's renderer process.
	cpuDivisor = 2
)

// GeneratorPool bounds how many documents are printed at once. Each
// Generator owns one browser, started by its first Generate call, so a
// server that never renders never launches Chrome. The pool builds
// generators on demand up to its size and then makes callers wait.
type GeneratorPool struct {
	size       int
	newFunc    func() *Generator
	generators []*Generator
	idle       chan *Generator
	mu         sync.Mutex
	created    int
	closed     bool
}

// NewGeneratorPool creates a pool of at most n generators sharing cfg.
// n below one is raised to one.
func NewGeneratorPool(n int, cfg GeneratorConfig) *GeneratorPool {
	return newPool(n, func() *Generator { return NewGenerator(cfg) })
}

func newPool(n int, newFunc func() *Generator) *GeneratorPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &GeneratorPool{
		size:       n,
		newFunc:    newFunc,
		generators: make([]*Generator, 0, n),
		idle:       make(chan *Generator, n),
	}
}

// Acquire hands out an idle generator, or builds a new one while fewer than
// Size exist. Otherwise it waits for a Release. Building a generator does
// not start its browser. After Close, Acquire returns nil.
func (p *GeneratorPool) Acquire() *Generator {
	select {
	case g := <-p.idle:
		return g
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		g := p.newFunc()

		p.mu.Lock()
		p.generators = append(p.generators, g)
		p.mu.Unlock()
		return g
	}
	p.mu.Unlock()

	return <-p.idle
}

// Release puts g back for the next Acquire. After Close it does nothing: g
// was already closed with the rest of the pool. idle holds every generator
// the pool ever built, so the send never blocks.
func (p *GeneratorPool) Release(g *Generator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.idle <- g:
	default:
	}
}

// Close stops the browser of every generator built so far, including ones
// still rendering, whose Generate calls then fail. Closing twice is a no-op.
func (p *GeneratorPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	generators := p.generators
	p.mu.Unlock()

	var errs []error
	for _, g := range generators {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *GeneratorPool) Size() int {
	return p.size
}

// ResolvePoolSize returns workers when positive, otherwise half of
// GOMAXPROCS clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
