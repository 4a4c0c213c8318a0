package ddpubsub

import "context"

// mailbox gives a component the single-threaded cooperative semantics the
// concurrency model requires: one goroutine drains the channel, running
// exactly one command at a time, so state owned by that goroutine needs
// no locks.
type mailbox chan func()

func newMailbox() mailbox {
	return make(mailbox, 64)
}

// run drains the mailbox until ctx is cancelled. Call it in its own
// goroutine; it returns when ctx.Done() fires, after finishing whatever
// command is currently in flight.
func (m mailbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-m:
			cmd()
		}
	}
}

// tell enqueues fn without waiting for it to run (fire-and-forget).
func (m mailbox) tell(fn func()) {
	m <- fn
}

// ask enqueues fn and blocks until it has run or ctx is cancelled,
// returning fn's error. This is the "Future<Done>" of the original
// design, modeled as a blocking round trip through the mailbox.
func ask(ctx context.Context, m mailbox, fn func() error) error {
	done := make(chan error, 1)
	select {
	case m <- func() { done <- fn() }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// askValue is ask's counterpart for commands that need to return a value
// alongside completion, used by the Update Loop to pull a consistent
// snapshot+diff out of the Subscriptions Registry's owning mailbox.
func askValue[R any](ctx context.Context, m mailbox, fn func() R) (R, error) {
	done := make(chan R, 1)
	select {
	case m <- func() { done <- fn() }:
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
