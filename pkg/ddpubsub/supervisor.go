package ddpubsub

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/ddpubsub/pkg/logging"
)

// task is a supervised unit of work; it should run until ctx is
// cancelled, returning nil on clean shutdown.
type task func(ctx context.Context) error

// supervisor spawns a named set of child tasks and respawns any that
// return an error or panic, after restartDelay plus jitter. This is the
// "tagged task" rendition of the original supervisor hierarchy: no
// runtime-specific supervision primitive, just goroutines and channels.
// eg tracks every spawned child so Wait can drain the whole tree on
// shutdown instead of leaking goroutines past ctx cancellation.
type supervisor struct {
	logger       *logging.ColoredLogger
	restartDelay time.Duration
	eg           *errgroup.Group
}

func newSupervisor(logger *logging.ColoredLogger, restartDelay time.Duration) *supervisor {
	return &supervisor{logger: logger, restartDelay: restartDelay, eg: &errgroup.Group{}}
}

// Spawn runs t under ctx, respawning it with backoff until ctx is
// cancelled. It returns immediately; supervision happens in a background
// goroutine tracked by s.eg.
func (s *supervisor) Spawn(ctx context.Context, name string, t task) {
	s.eg.Go(func() error {
		s.supervise(ctx, name, t)
		return nil
	})
}

// Wait blocks until every spawned child has observed ctx cancellation and
// returned, draining the supervision tree on shutdown.
func (s *supervisor) Wait() error {
	return s.eg.Wait()
}

func (s *supervisor) supervise(ctx context.Context, name string, t task) {
	backoff := s.restartDelay
	for {
		if ctx.Err() != nil {
			return
		}

		err := runGuarded(ctx, t)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.ComponentWarn(logging.ComponentSupervisor, "child task crashed, restarting",
				zap.String("task", name), zap.Error(err), zap.Duration("backoff", backoff))
		}

		select {
		case <-time.After(addJitter(backoff)):
		case <-ctx.Done():
			return
		}
		backoff = calculateNextBackoff(backoff)
	}
}

// runGuarded runs t and converts a panic into an error so one crashed
// child cannot take down the supervisor goroutine itself.
func runGuarded(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t(ctx)
}

// calculateNextBackoff grows the delay by 1.5x, capped at 10 minutes.
// Carried over from the teacher's peer-reconnect backoff, repurposed for
// child-respawn delay.
func calculateNextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * 1.5)
	if next > 10*time.Minute {
		next = 10 * time.Minute
	}
	return next
}

// addJitter randomizes base by ±20%.
func addJitter(base time.Duration) time.Duration {
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * factor)
}
