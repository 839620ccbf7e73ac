package scanner

import "context"

// env is the per-scanner call environment. Storage files opened by a
// scanner read lazily and pick up the context of whichever call is in
// progress through env.current.
type env struct {
	active context.Context
}

// enter installs ctx as the active context and returns the function that
// restores the previous one. Callers defer the restore so it runs on every
// exit path.
func (e *env) enter(ctx context.Context) (restore func()) {
	prev := e.active
	e.active = ctx
	return func() { e.active = prev }
}

// current returns the active context, or Background between calls.
func (e *env) current() context.Context {
	if e.active == nil {
		return context.Background()
	}
	return e.active
}
