package hook

import (
	"context"
	"log"

	"github.com/ayusman/gesturetree/internal/scene"
)

// DefaultQueueSize is how many transitions may wait for their hooks.
const DefaultQueueSize = 16

// Dispatcher runs hooks for scene transitions on its own goroutine, so the
// machine never waits on an external program. Transitions arriving while
// the queue is full are dropped.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	queue    chan scene.Transition
}

// NewDispatcher creates a Dispatcher. size <= 0 uses DefaultQueueSize.
func NewDispatcher(manager *Manager, executor *Executor, size int) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		queue:    make(chan scene.Transition, size),
	}
}

// Notify queues t. It never blocks, so it can be registered with
// Machine.OnTransition directly.
func (d *Dispatcher) Notify(t scene.Transition) {
	if !t.Changed {
		return
	}
	select {
	case d.queue <- t:
	default:
		log.Printf("Hook queue full, dropping %s -> %s", t.From, t.To)
	}
}

// Run executes queued transitions in order until ctx is done. Hooks for one
// transition run one after another.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.queue:
			d.dispatch(ctx, t)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, t scene.Transition) {
	for _, h := range d.manager.For(t.To) {
		resp, err := d.executor.Execute(ctx, h, NewEvent(h, t))
		switch {
		case err != nil:
			log.Printf("Hook %s failed: %v", h.Manifest.Name, err)
		case !resp.Success:
			log.Printf("Hook %s reported an error: %s", h.Manifest.Name, resp.Error)
		}
	}
}
