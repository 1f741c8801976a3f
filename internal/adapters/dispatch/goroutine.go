// Package dispatch runs background deliveries: in-process goroutines by
// default, or an asynq queue backed by Redis.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// SendFunc delivers one message; delivery.Sender.Send has this shape.
type SendFunc func(ctx context.Context, m domain.Message, clientName string) error

// DefaultRetryBackoff is the pause before the first retry; it doubles on
// each further attempt.
const DefaultRetryBackoff = 2 * time.Second

// Goroutine sends each message on its own goroutine. Sends are detached from
// the request context and cannot be cancelled once started; Wait blocks until
// all of them have finished. A failed send is retried up to maxRetry times.
type Goroutine struct {
	send     SendFunc
	maxRetry int
	backoff  time.Duration
	wg       sync.WaitGroup
}

func NewGoroutine(send SendFunc, maxRetry int) *Goroutine {
	if maxRetry < 0 {
		maxRetry = 0
	}
	return &Goroutine{send: send, maxRetry: maxRetry, backoff: DefaultRetryBackoff}
}

// Dispatch satisfies ports.Dispatcher.
func (g *Goroutine) Dispatch(ctx context.Context, m domain.Message, clientName string) error {
	ctx = context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				slog.Error("background delivery panicked", "part", m.Label(), "client", clientName, "panic", p)
			}
		}()
		g.run(ctx, m, clientName)
	}()
	return nil
}

// run sends m until it succeeds or the retries are spent. Each attempt is
// logged and recorded by send.
func (g *Goroutine) run(ctx context.Context, m domain.Message, clientName string) {
	wait := g.backoff
	for attempt := 0; ; attempt++ {
		err := g.send(ctx, m, clientName)
		if err == nil {
			return
		}
		if attempt >= g.maxRetry {
			slog.Error("background delivery gave up", "client", clientName, "part", m.Label(),
				"attempts", attempt+1, "err", err)
			return
		}
		time.Sleep(wait)
		wait *= 2
	}
}

// Wait blocks until every dispatched send has returned or ctx is done.
func (g *Goroutine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
