// Package listener owns the push channel: it keeps a WebSocket open to the
// approval server, feeds decoded frames to the store in arrival order, and
// resynchronizes with a full fetch every time it (re)connects.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/core"
	"github.com/Rorical/RoriGate/internal/models"
	"github.com/Rorical/RoriGate/internal/protocol"
)

const readLimit = 16 << 20

// ErrNotConnected is returned by Send while the channel is down.
var ErrNotConnected = errors.New("push channel not connected")

// Bootstrapper fetches the authoritative state over request/response.
type Bootstrapper interface {
	FetchToolCalls(ctx context.Context) (protocol.InitialState, error)
	FetchChatHistory(ctx context.Context) ([]models.ChatMessage, error)
}

type Options struct {
	URL       string
	Store     *core.Store
	Bootstrap Bootstrapper    // optional
	Backoff   backoff.BackOff // defaults to DefaultBackoff
	Logger    *zap.Logger
}

type Listener struct {
	url       string
	store     *core.Store
	bootstrap Bootstrapper
	backoff   backoff.BackOff
	logger    *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(opts Options) *Listener {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff()
	}
	return &Listener{
		url:       opts.URL,
		store:     opts.Store,
		bootstrap: opts.Bootstrap,
		backoff:   opts.Backoff,
		logger:    opts.Logger.Named("listener"),
	}
}

// Run keeps the channel open until ctx is cancelled, reconnecting with
// backoff after every close. A successful connect resets the backoff. It
// returns nil on cancellation and an error once the reconnect budget is
// spent.
func (l *Listener) Run(ctx context.Context) error {
	defer l.store.SetConnection(models.Disconnected)

	policy := backoff.WithContext(l.backoff, ctx)
	attempts := 0
	err := backoff.RetryNotify(func() error {
		connected, err := l.session(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if connected {
			attempts = 0
			policy.Reset()
		}
		if err == nil {
			err = errors.New("push channel closed")
		}
		return err
	}, policy, func(err error, delay time.Duration) {
		attempts++
		l.store.SetConnection(models.Reconnecting)
		l.logger.Warn("push channel closed, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay))
	})
	if ctx.Err() != nil {
		return nil
	}

	l.logger.Error("giving up on push channel", zap.Int("attempts", attempts), zap.Error(err))
	return fmt.Errorf("push channel: gave up after %d attempts: %w", attempts, err)
}

// session runs one connection from dial to close. connected reports whether
// the dial succeeded.
func (l *Listener) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := websocket.Dial(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.url, err)
	}
	conn.SetReadLimit(readLimit)

	l.setConn(conn)
	defer l.setConn(nil)

	l.store.SetConnection(models.Connected)
	l.logger.Info("push channel connected", zap.String("url", l.url))

	l.resync(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "client shutdown")
			} else {
				_ = conn.CloseNow()
			}
			return true, err
		}
		l.handleFrame(data)
	}
}

// resync replaces local state with a full fetch. Events missed while the
// channel was down cannot be replayed, so this runs on every connect.
func (l *Listener) resync(ctx context.Context) {
	if l.bootstrap == nil {
		return
	}

	st, err := l.bootstrap.FetchToolCalls(ctx)
	if err != nil {
		l.logger.Warn("bootstrap fetch failed", zap.Error(err))
	} else {
		l.store.Apply(st)
		l.logger.Debug("resynchronized",
			zap.Int("pending", len(st.Pending)),
			zap.Int("log", len(st.Log)))
	}

	history, err := l.bootstrap.FetchChatHistory(ctx)
	if err != nil {
		l.logger.Debug("chat history unavailable", zap.Error(err))
		return
	}
	l.store.SeedChat(history)
}

func (l *Listener) handleFrame(data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		l.logger.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
		return
	}
	if ig, ok := ev.(protocol.Ignored); ok {
		l.logger.Debug("ignoring unknown event", zap.String("type", ig.Type))
		return
	}
	if !l.store.Apply(ev) {
		l.logger.Debug("event was a no-op", zap.String("event", fmt.Sprintf("%T", ev)))
	}
}

// Send writes an answer on the open connection.
func (l *Listener) Send(ctx context.Context, answer protocol.UserAnswer) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := protocol.EncodeUserAnswer(answer)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send answer: %w", err)
	}
	return nil
}

func (l *Listener) setConn(conn *websocket.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conn = conn
}
