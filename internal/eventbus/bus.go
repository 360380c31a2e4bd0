package eventbus

import (
	"errors"
	"sync"
	"time"

	"github.com/Rorical/RoriGate/internal/models"
)

// UIEvent represents events sent from UI to Core
type UIEvent interface {
	UIEvent()
}

// CoreEvent represents events sent from Core to UI
type CoreEvent interface {
	CoreEvent()
}

// ToggleSelectionEvent - UI flips batch selection of a pending tool call
type ToggleSelectionEvent struct {
	ID string
}

func (e ToggleSelectionEvent) UIEvent() {}

// ClearSelectionEvent - UI empties the batch selection
type ClearSelectionEvent struct{}

func (e ClearSelectionEvent) UIEvent() {}

// ApproveEvent - UI approves one tool call. Overrides is a snapshot of the
// edit overlay taken at submission.
type ApproveEvent struct {
	ID        string
	Overrides map[string]any
}

func (e ApproveEvent) UIEvent() {}

// DenyEvent - UI denies one tool call
type DenyEvent struct {
	ID string
}

func (e DenyEvent) UIEvent() {}

// BatchApproveEvent - UI approves everything currently selected
type BatchApproveEvent struct{}

func (e BatchApproveEvent) UIEvent() {}

// BatchDenyEvent - UI denies everything currently selected
type BatchDenyEvent struct{}

func (e BatchDenyEvent) UIEvent() {}

// AnswerEvent - UI replies in the chat thread, optionally to a question
type AnswerEvent struct {
	Text       string
	QuestionID string
}

func (e AnswerEvent) UIEvent() {}

// StateUpdateEvent - the latest store snapshot, delivered through the state
// slot rather than the event channel
type StateUpdateEvent struct {
	Snapshot models.Snapshot
}

func (e StateUpdateEvent) CoreEvent() {}

// CommandErrorEvent - a command failed at the transport layer
type CommandErrorEvent struct {
	Op  string
	Err error
}

func (e CommandErrorEvent) CoreEvent() {}

// CommandDoneEvent - a command got a successful response
type CommandDoneEvent struct {
	Op string
}

func (e CommandDoneEvent) CoreEvent() {}

// EventBusError represents errors in event processing
type EventBusError struct {
	Operation string
	Err       error
	Timestamp time.Time
}

func (e EventBusError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrClosed      = errors.New("event bus closed")
)

// CircuitBreakerState represents the state of circuit breaker
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreaker implements circuit breaker pattern
type CircuitBreaker struct {
	mu              sync.Mutex
	maxFailures     int
	resetTimeout    time.Duration
	failureCount    int
	lastFailureTime time.Time
	state           CircuitBreakerState
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        CircuitClosed,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen {
		// Check if we should transition to half-open
		if time.Since(cb.lastFailureTime) > cb.resetTimeout {
			cb.state = CircuitHalfOpen
		}
	}
	return cb.state == CircuitOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.state = CircuitClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EventBus handles communication between UI and Core with circuit breaker.
// Each direction has its own breaker. Snapshots travel in a one-slot state
// channel where a newer snapshot replaces an unread one, so they never fill
// the event channel.
type EventBus struct {
	mu            sync.RWMutex
	closed        bool
	uiToCore      chan UIEvent
	coreToUI      chan CoreEvent
	state         chan models.Snapshot
	errorCallback func(EventBusError)
	coreBreaker   *CircuitBreaker
	uiBreaker     *CircuitBreaker
}

func NewEventBus() *EventBus {
	return &EventBus{
		uiToCore:    make(chan UIEvent, 100),
		coreToUI:    make(chan CoreEvent, 100),
		state:       make(chan models.Snapshot, 1),
		coreBreaker: NewCircuitBreaker(5, 30*time.Second),
		uiBreaker:   NewCircuitBreaker(5, 30*time.Second),
	}
}

func (eb *EventBus) SetErrorCallback(callback func(EventBusError)) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.errorCallback = callback
}

func (eb *EventBus) reportError(cb *CircuitBreaker, operation string, err error) {
	busError := EventBusError{
		Operation: operation,
		Err:       err,
		Timestamp: time.Now(),
	}

	cb.RecordFailure()

	if eb.errorCallback != nil {
		eb.errorCallback(busError)
	}
}

func (eb *EventBus) SendToCore(event UIEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	if eb.coreBreaker.IsOpen() {
		eb.reportError(eb.coreBreaker, "SendToCore", ErrCircuitOpen)
		return ErrCircuitOpen
	}

	select {
	case eb.uiToCore <- event:
		eb.coreBreaker.RecordSuccess()
		return nil
	default:
		err := errors.New("UI to Core channel is full")
		eb.reportError(eb.coreBreaker, "SendToCore", err)
		return err
	}
}

func (eb *EventBus) SendToUI(event CoreEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	if eb.uiBreaker.IsOpen() {
		eb.reportError(eb.uiBreaker, "SendToUI", ErrCircuitOpen)
		return ErrCircuitOpen
	}

	select {
	case eb.coreToUI <- event:
		eb.uiBreaker.RecordSuccess()
		return nil
	default:
		err := errors.New("Core to UI channel is full")
		eb.reportError(eb.uiBreaker, "SendToUI", err)
		return err
	}
}

// PublishState hands the UI the latest snapshot, replacing one it has not
// read yet. It never blocks and never counts against a breaker.
func (eb *EventBus) PublishState(snap models.Snapshot) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return ErrClosed
	}

	for {
		select {
		case eb.state <- snap:
			return nil
		default:
		}
		select {
		case <-eb.state:
		default:
		}
	}
}

func (eb *EventBus) UIToCore() <-chan UIEvent {
	return eb.uiToCore
}

func (eb *EventBus) CoreToUI() <-chan CoreEvent {
	return eb.coreToUI
}

// StateUpdates yields the newest unread snapshot.
func (eb *EventBus) StateUpdates() <-chan models.Snapshot {
	return eb.state
}

// CoreBreakerState is the breaker guarding UI to Core sends.
func (eb *EventBus) CoreBreakerState() CircuitBreakerState {
	return eb.coreBreaker.State()
}

// UIBreakerState is the breaker guarding Core to UI sends.
func (eb *EventBus) UIBreakerState() CircuitBreakerState {
	return eb.uiBreaker.State()
}

// Close is safe to call more than once; sends after Close return ErrClosed.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.uiToCore)
	close(eb.coreToUI)
	close(eb.state)
}
