// Package dispatcher turns operator intents into outbound commands. Local
// effects (selection clearing, optimistic chat) are applied before a command
// leaves; transport failures are reported but never rolled back.
package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/core"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

var (
	ErrEmptySelection = errors.New("no tool calls selected")
	ErrEmptyAnswer    = errors.New("answer text is empty")
	ErrStopped        = errors.New("dispatcher stopped")
)

// Transport performs request/response commands.
type Transport interface {
	Do(ctx context.Context, cmd protocol.Command) error
}

// Sender writes frames on the duplex channel.
type Sender interface {
	Send(ctx context.Context, answer protocol.UserAnswer) error
}

type Dispatcher struct {
	transport Transport
	sender    Sender
	store     *core.Store
	logger    *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex // guards stopped and wg.Add against Stop
	stopped bool
	wg      sync.WaitGroup
}

// New builds a dispatcher. sender may be nil when no push channel is
// available; answers then fail with an error.
func New(transport Transport, sender Sender, store *core.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		transport: transport,
		sender:    sender,
		store:     store,
		logger:    logger.Named("dispatcher"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Stop cancels commands still in flight and waits for them to return.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// Submit applies cmd's local effects now and transmits it in the background.
// done, if non-nil, receives the transport outcome. An error is returned
// only when the command never left, e.g. a batch with nothing selected.
func (d *Dispatcher) Submit(cmd protocol.Command, done func(error)) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	d.wg.Add(1)
	d.mu.Unlock()

	out, err := d.prepare(cmd)
	if err != nil {
		d.wg.Done()
		return err
	}

	go func() {
		defer d.wg.Done()
		err := d.execute(d.ctx, out)
		if done != nil {
			done(err)
		}
	}()
	return nil
}

// Dispatch runs cmd to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) error {
	out, err := d.prepare(cmd)
	if err != nil {
		return err
	}
	return d.execute(ctx, out)
}

func (d *Dispatcher) Approve(ctx context.Context, id string, overrides map[string]any) error {
	return d.Dispatch(ctx, protocol.Approve{ID: id, Overrides: overrides})
}

func (d *Dispatcher) Deny(ctx context.Context, id string) error {
	return d.Dispatch(ctx, protocol.Deny{ID: id})
}

// BatchApprove approves ids, or the current selection when ids is empty.
func (d *Dispatcher) BatchApprove(ctx context.Context, ids ...string) error {
	return d.Dispatch(ctx, protocol.BatchApprove{IDs: ids})
}

// BatchDeny denies ids, or the current selection when ids is empty.
func (d *Dispatcher) BatchDeny(ctx context.Context, ids ...string) error {
	return d.Dispatch(ctx, protocol.BatchDeny{IDs: ids})
}

func (d *Dispatcher) Answer(ctx context.Context, text, questionID string) error {
	return d.Dispatch(ctx, protocol.UserAnswer{Text: text, QuestionID: questionID})
}

// prepare applies local effects and returns the command to transmit.
func (d *Dispatcher) prepare(cmd protocol.Command) (protocol.Command, error) {
	switch c := cmd.(type) {
	case protocol.Approve:
		c.Overrides = models.CloneArgs(c.Overrides)
		return c, nil
	case protocol.Deny:
		return c, nil
	case protocol.BatchApprove:
		ids, err := d.batchIDs(c.IDs)
		return protocol.BatchApprove{IDs: ids}, err
	case protocol.BatchDeny:
		ids, err := d.batchIDs(c.IDs)
		return protocol.BatchDeny{IDs: ids}, err
	case protocol.UserAnswer:
		if strings.TrimSpace(c.Text) == "" {
			return nil, ErrEmptyAnswer
		}
		d.store.AnswerLocally(c.Text)
		return c, nil
	default:
		return nil, errors.New("unsupported command")
	}
}

// batchIDs resolves the ids of a batch. The selection is cleared either
// way once a batch is dispatched.
func (d *Dispatcher) batchIDs(ids []string) ([]string, error) {
	if len(ids) > 0 {
		d.store.ClearSelection()
		return append([]string(nil), ids...), nil
	}
	ids = d.store.TakeSelection()
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	return ids, nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd protocol.Command) error {
	op := protocol.Name(cmd)
	var err error
	if answer, ok := cmd.(protocol.UserAnswer); ok {
		if d.sender == nil {
			err = errors.New("push channel unavailable")
		} else {
			err = d.sender.Send(ctx, answer)
		}
	} else {
		err = d.transport.Do(ctx, cmd)
	}

	if err != nil {
		d.logger.Error("command failed", zap.String("op", op), zap.Error(err))
		return err
	}
	d.logger.Debug("command sent", zap.String("op", op))
	return nil
}
