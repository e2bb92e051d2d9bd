package bootstrap

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

func TestSupervisorRunsLoopsUntilCancelled(t *testing.T) {
	sup := NewSupervisor(logging.Discard())
	var started atomic.Int32
	ready := make(chan struct{}, 2)
	for _, name := range []string{"a", "b"} {
		sup.Add(name, func(ctx context.Context) {
			started.Add(1)
			ready <- struct{}{}
			<-ctx.Done()
		})
	}
	assert.Equal(t, []string{"a", "b"}, sup.Names())

	ctx, cancel := context.WithCancel(context.Background())
	sup.Start(ctx)
	<-ready
	<-ready
	cancel()
	sup.Wait()
	assert.Equal(t, int32(2), started.Load())
}

func TestSupervisorRecoversPanickingLoop(t *testing.T) {
	sup := NewSupervisor(logging.Discard())
	sup.Add("boom", func(context.Context) { panic("boom") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.Start(ctx)
	sup.Wait()
}
