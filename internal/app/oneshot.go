package app

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/Rorical/RoriGate/internal/core"
	"github.com/Rorical/RoriGate/internal/dispatcher"
	"github.com/Rorical/RoriGate/internal/models"
)

// Dispatcher returns a dispatcher for request/response commands only.
// It has no push channel, so answers sent through it fail.
func (e *Env) Dispatcher() *dispatcher.Dispatcher {
	return dispatcher.New(e.Client, nil, core.NewStore(), e.Logger)
}

// Answer connects to the push channel, sends one reply and disconnects.
func (e *Env) Answer(ctx context.Context, text, questionID string) error {
	store := core.NewStore()
	connected := make(chan struct{}, 1)
	store.OnChange(func() {
		if store.Connection() == models.Connected {
			select {
			case connected <- struct{}{}:
			default:
			}
		}
	})

	lst, err := e.newListener(store, backoff.WithMaxRetries(e.Backoff(), 1))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return lst.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		select {
		case <-connected:
		case <-gctx.Done():
			return gctx.Err()
		}
		d := dispatcher.New(e.Client, lst, store, e.Logger)
		defer d.Stop()
		return d.Answer(gctx, text, questionID)
	})
	return g.Wait()
}
