package bootstrap

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// Supervisor runs the background loops (session sweeper, dedup purger, rate
// limiter eviction) for the lifetime of a context.
type Supervisor struct {
	logger *logging.Logger
	loops  []loop
	wg     sync.WaitGroup
}

type loop struct {
	name string
	run  func(ctx context.Context)
}

func NewSupervisor(logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	return &Supervisor{logger: logger}
}

// Add registers a loop. run must return once ctx is done.
func (s *Supervisor) Add(name string, run func(ctx context.Context)) {
	s.loops = append(s.loops, loop{name: name, run: run})
}

// Names lists the registered loops in registration order.
func (s *Supervisor) Names() []string {
	names := make([]string, 0, len(s.loops))
	for _, l := range s.loops {
		names = append(names, l.name)
	}
	return names
}

// Start launches every loop. A loop that panics is logged and not restarted.
func (s *Supervisor) Start(ctx context.Context) {
	for _, l := range s.loops {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("background loop panicked", "loop", l.name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
				}
			}()
			s.logger.Debug("background loop started", "loop", l.name)
			l.run(ctx)
			s.logger.Debug("background loop stopped", "loop", l.name)
		}()
	}
}

// Wait blocks until every started loop has returned.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
