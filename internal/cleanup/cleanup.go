// Package cleanup collects resources that must be released before exit,
// such as the JSONL log file and provider clients.
package cleanup

import (
	"errors"
	"fmt"
	"sync"
)

type hook struct {
	name string
	fn   func() error
}

var (
	mu    sync.Mutex
	hooks []hook
)

// Register queues fn to run at exit. Hooks run in reverse registration order.
func Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	mu.Lock()
	hooks = append(hooks, hook{name: name, fn: fn})
	mu.Unlock()
}

// Pending reports how many hooks are queued.
func Pending() int {
	mu.Lock()
	defer mu.Unlock()
	return len(hooks)
}

// RunAll runs and clears every queued hook. A failing hook does not stop
// the ones registered before it.
func RunAll() error {
	mu.Lock()
	queued := hooks
	hooks = nil
	mu.Unlock()

	var errs []error
	for i := len(queued) - 1; i >= 0; i-- {
		h := queued[i]
		if err := h.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
}
