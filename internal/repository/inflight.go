package repository

import (
	"context"
	"errors"
	"sync"
)

// errStale means a newer request for the same key started after this one.
var errStale = errors.New("a newer request for the same data started")

// inflight tracks request generations per request identity. A remote result
// may only be written if no newer request for the same key has begun and the
// caller has not abandoned it.
//
// Generations come from one counter shared by all keys, so a key can be
// forgotten once its latest request is done without a later request reusing
// an older generation number.
type inflight struct {
	mu   sync.Mutex
	seq  uint64
	keys map[string]*generation
}

type generation struct {
	mu  sync.Mutex
	gen uint64
}

func newInflight() *inflight {
	return &inflight{keys: make(map[string]*generation)}
}

// begin starts a new request for key and returns its generation. Callers
// must call done with the same key and generation when the request ends.
func (f *inflight) begin(key string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.keys[key]
	if !ok {
		g = &generation{}
		f.keys[key] = g
	}
	f.seq++
	g.mu.Lock()
	g.gen = f.seq
	g.mu.Unlock()
	return f.seq
}

// commit runs write while holding key's lock, provided gen is still the
// latest generation and ctx is live. Otherwise it returns errStale or the
// context error without calling write.
func (f *inflight) commit(ctx context.Context, key string, gen uint64, write func() error) error {
	f.mu.Lock()
	g, ok := f.keys[key]
	f.mu.Unlock()
	if !ok {
		return errStale
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if g.gen != gen {
		return errStale
	}
	return write()
}

// done forgets key if gen is its latest request.
func (f *inflight) done(key string, gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.keys[key]
	if !ok {
		return
	}
	g.mu.Lock()
	if g.gen == gen {
		delete(f.keys, key)
	}
	g.mu.Unlock()
}

// isSuperseded reports whether a failed operation's result should be
// dropped rather than reported: a newer request for the same data started,
// or the caller itself gave up. A transport deadline inside the client is
// not the caller giving up and stays a transport failure.
func isSuperseded(ctx context.Context, err error) bool {
	if errors.Is(err, errStale) {
		return true
	}
	return ctx.Err() != nil
}
