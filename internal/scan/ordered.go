package scan

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ordered runs work over chunks on a bounded errgroup and hands results back
// strictly in chunk order. At most window chunks are dispatched ahead of the
// one being consumed.
type ordered[R any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group
	gctx   context.Context
	chunks []Chunk
	slots  []chan R
	next   int
	window int
	work   func(ctx context.Context, c Chunk) (R, error)
}

func newOrdered[R any](ctx context.Context, chunks []Chunk, workers int, work func(context.Context, Chunk) (R, error)) *ordered[R] {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	slots := make([]chan R, len(chunks))
	for i := range slots {
		slots[i] = make(chan R, 1)
	}
	return &ordered[R]{
		ctx:    ctx,
		cancel: cancel,
		g:      g,
		gctx:   gctx,
		chunks: chunks,
		slots:  slots,
		window: workers,
		work:   work,
	}
}

// result returns the result of chunk i, dispatching chunks up to the window.
func (o *ordered[R]) result(i int) (R, error) {
	o.dispatch(i)

	var zero R
	select {
	case r := <-o.slots[i]:
		o.slots[i] = nil
		return r, nil
	case <-o.gctx.Done():
		return zero, o.wait()
	}
}

func (o *ordered[R]) dispatch(i int) {
	for o.next < len(o.chunks) && o.next < i+o.window {
		c, slot := o.chunks[o.next], o.slots[o.next]
		o.g.Go(func() error {
			r, err := o.work(o.gctx, c)
			if err != nil {
				return err
			}
			slot <- r
			return nil
		})
		o.next++
	}
}

// wait returns the first worker error, or the cancellation cause when every
// worker finished cleanly.
func (o *ordered[R]) wait() error {
	if err := o.g.Wait(); err != nil {
		return err
	}
	return o.ctx.Err()
}

// close stops dispatch and waits for in-flight work, whose results are
// discarded.
func (o *ordered[R]) close() {
	o.cancel()
	_ = o.g.Wait()
}
