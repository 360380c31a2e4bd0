package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/Rorical/RoriGate/internal/eventbus"
	"github.com/Rorical/RoriGate/internal/protocol"
)

// Submitter hands commands to the outbound side.
type Submitter interface {
	Submit(cmd protocol.Command, done func(error)) error
}

// SyncService bridges the store and the UI: operator intents arriving on
// the bus become store transitions or commands, and every store change is
// published back to the UI as a snapshot.
type SyncService struct {
	store    *Store
	eventBus *eventbus.EventBus
	commands Submitter
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	changed  chan struct{}
	done     chan struct{}
}

func NewSyncService(store *Store, eb *eventbus.EventBus, commands Submitter, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncService{
		store:    store,
		eventBus: eb,
		commands: commands,
		logger:   logger.Named("sync"),
		ctx:      ctx,
		cancel:   cancel,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	store.OnChange(s.markChanged)
	return s
}

// Start pushes the current state and runs the event loop in a goroutine.
func (s *SyncService) Start() {
	s.pushStateToUI()
	go s.eventLoop()
}

// Stop ends the event loop and waits for it to exit.
func (s *SyncService) Stop() {
	s.cancel()
	<-s.done
}

// markChanged coalesces bursts of store changes into one pending push.
func (s *SyncService) markChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *SyncService) eventLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.changed:
			s.pushStateToUI()
		case event, ok := <-s.eventBus.UIToCore():
			if !ok {
				return
			}
			s.handleUIEvent(event)
		}
	}
}

func (s *SyncService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.ToggleSelectionEvent:
		s.store.Toggle(e.ID)
	case eventbus.ClearSelectionEvent:
		s.store.ClearSelection()
	case eventbus.ApproveEvent:
		s.submit(protocol.Approve{ID: e.ID, Overrides: e.Overrides})
	case eventbus.DenyEvent:
		s.submit(protocol.Deny{ID: e.ID})
	case eventbus.BatchApproveEvent:
		s.submit(protocol.BatchApprove{})
	case eventbus.BatchDenyEvent:
		s.submit(protocol.BatchDeny{})
	case eventbus.AnswerEvent:
		s.submit(protocol.UserAnswer{Text: e.Text, QuestionID: e.QuestionID})
	}
}

func (s *SyncService) submit(cmd protocol.Command) {
	op := protocol.Name(cmd)
	err := s.commands.Submit(cmd, func(err error) {
		if err != nil {
			s.report(eventbus.CommandErrorEvent{Op: op, Err: err})
			return
		}
		s.report(eventbus.CommandDoneEvent{Op: op})
	})
	if err != nil {
		s.report(eventbus.CommandErrorEvent{Op: op, Err: err})
	}
}

// pushStateToUI publishes the current snapshot. An unread older snapshot is
// replaced, so the UI always catches up to the store's latest version.
func (s *SyncService) pushStateToUI() {
	if err := s.eventBus.PublishState(s.store.Snapshot()); err != nil {
		s.logger.Debug("state not published", zap.Error(err))
	}
}

func (s *SyncService) report(event eventbus.CoreEvent) {
	if err := s.eventBus.SendToUI(event); err != nil {
		s.logger.Warn("dropping UI event", zap.Error(err))
	}
}
