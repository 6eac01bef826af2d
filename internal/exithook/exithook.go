package exithook

import (
	"sync"
)

// registry holds all currently registered hooks keyed by registration id.
// order preserves registration order; removed entries leave a nil slot so
// ids of later hooks stay stable.
//
// A plain mutex (rather than an atomic structure) is deliberate: hooks are
// registered and removed on launch/shutdown paths where contention is
// negligible, and Run must observe a consistent snapshot.
var (
	mu     sync.Mutex
	nextID uint64
	hooks  = map[uint64]func(){}
	order  []uint64
)

// Register adds fn to the process-wide hook registry and returns a removal
// function. The removal function is idempotent: calling it more than once,
// or after Run has already fired the hook, is a no-op. fn must not be nil.
func Register(fn func()) (remove func()) {
	if fn == nil {
		panic("subproc: exit hook must not be nil")
	}

	mu.Lock()
	id := nextID
	nextID++
	hooks[id] = fn
	order = append(order, id)
	mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			delete(hooks, id)
			mu.Unlock()
		})
	}
}

// Run invokes all registered hooks in registration order and removes them.
// A hook registered while Run is executing (for example by another
// goroutine) is not invoked by this Run call; it stays registered for a
// subsequent call. Safe to call multiple times and from exit paths where
// panicking would mask the original termination cause: hooks run outside
// the registry lock so a hook may itself call Register or a removal func.
func Run() {
	mu.Lock()
	ids := order
	order = nil
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		if fn, ok := hooks[id]; ok {
			fns = append(fns, fn)
			delete(hooks, id)
		}
	}
	mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len reports the number of registered hooks. Used by tests.
func Len() int {
	mu.Lock()
	defer mu.Unlock()
	return len(hooks)
}
