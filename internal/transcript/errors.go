package transcript

type staticErr string

func (e staticErr) Error() string { return string(e) }

var (
	// ErrOrphanedCompletion marks a completion signal with no open stream. It is a no-op.
	ErrOrphanedCompletion = staticErr("stream completion without open entry")
	// ErrUnresolvedSide marks an event that could not be routed to either player.
	ErrUnresolvedSide = staticErr("event side could not be resolved")
)
