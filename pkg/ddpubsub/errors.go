package ddpubsub

import "errors"

// ErrSubscriberGone names the SubscriberGone error kind. No code path
// returns it: a handle whose Done channel closes is removed from the
// registry silently, and commands for an already-removed handler are
// no-ops.
var ErrSubscriberGone = errors.New("ddpubsub: subscriber gone")
