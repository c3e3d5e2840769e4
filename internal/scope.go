package internal

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scope is the ambient runtime scope: background work the engine is
// allowed to own outright — async listener dispatch and the lazily-started
// clock producer — scheduled off the coarse lock. It generalizes an
// Owner-style parent/child disposal tree down to the one responsibility
// this engine actually needs: nodes here are never individually disposed,
// only background goroutines are.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	logger *zap.SugaredLogger
}

func NewScope(logger *zap.SugaredLogger) *Scope {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Scope{ctx: ctx, cancel: cancel, group: group, logger: logger}
}

// Context is cancelled when Close is called; background producers (the
// clock) select on it to know when to stop.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go runs fn on the scope, recovering any panic so a misbehaving async
// listener never crashes the process and never propagates back into the
// updateNodeValue call that scheduled it (which has already returned by
// the time fn runs).
func (s *Scope) Go(fn func()) {
	s.group.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Errorw("async listener panicked", "panic", r)
			}
		}()
		fn()
		return nil
	})
}

// Close cancels the scope and waits for outstanding goroutines to exit.
func (s *Scope) Close() {
	s.cancel()
	_ = s.group.Wait()
}
