// Package realtime owns the websocket connection to the OpenAI realtime
// endpoint.
//
// A Bridge moves through Idle, Initializing, Connected, Closing and Closed.
// Inbound events are decoded on a single read loop per connection and handed
// to the configured callbacks in arrival order. Outbound messages are only
// written while Connected and are never queued across connections.
package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Bridge struct {
	mu    sync.Mutex
	state State
	conn  *connection

	// attempt identifies the latest Start call, a Start that lost its slot
	// while dialing discards its connection.
	attempt uint64

	options  BridgeOptions
	handlers map[string]eventHandler
}

func NewBridge(opts ...BridgeOption) *Bridge {
	options := BridgeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	options.fillDefaults()

	b := &Bridge{state: StateIdle, options: options}
	b.handlers = b.dispatchTable()
	options.Metrics.SetSessionState(string(StateIdle), allStates...)
	return b
}

// Start opens a new connection and sends the session configuration. A
// connected session is closed first. Only one Start may be in flight.
func (b *Bridge) Start(ctx context.Context, apiKey string, config SessionConfig) (err error) {
	config = config.withDefaults()
	ctx, span := tracer.Start(ctx, "start realtime session",
		trace.WithAttributes(attribute.String("model", config.Model)))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to start realtime session")
			b.options.Metrics.SessionStarted("error")
		} else {
			b.options.Metrics.SessionStarted("ok")
		}
	}()

	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidInput)
	}

	b.mu.Lock()
	if !b.state.CanStart() {
		b.mu.Unlock()
		return ErrSessionAlreadyInitializing
	}
	b.attempt++
	attempt := b.attempt
	previous := b.conn
	b.conn = nil
	notify := b.setStateLocked(StateInitializing)
	b.mu.Unlock()
	notify()

	if previous != nil {
		logger.Info("closing previous realtime connection")
		if err := previous.close(); err != nil {
			logger.Warn("failed to close previous realtime connection", "error", err)
		}
		b.options.ClosedCallback(nil)
	}

	conn, err := dial(ctx, b.options, apiKey, config.Model)
	if err != nil {
		b.abortStart(attempt)
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if err := conn.send(TypeSessionUpdate, newSessionUpdateEvent(config)); err != nil {
		_ = conn.close()
		b.abortStart(attempt)
		return fmt.Errorf("%w: failed to configure session: %w", ErrConnection, err)
	}

	b.mu.Lock()
	if b.attempt != attempt || b.state != StateInitializing {
		b.mu.Unlock()
		_ = conn.close()
		return fmt.Errorf("%w: session was closed while connecting", ErrConnection)
	}
	b.conn = conn
	notify = b.setStateLocked(StateConnected)
	b.mu.Unlock()
	notify()

	go b.readLoop(conn)

	logger.Info("realtime session connected", "model", config.Model)
	return nil
}

func (b *Bridge) abortStart(attempt uint64) {
	b.mu.Lock()
	notify := func() {}
	if b.attempt == attempt && b.state == StateInitializing {
		notify = b.setStateLocked(StateIdle)
	}
	b.mu.Unlock()
	notify()
}

// AppendAudio sends one base64 encoded frame of input audio.
func (b *Bridge) AppendAudio(encoded string) error {
	conn, err := b.activeConnection()
	if err != nil {
		return err
	}
	return conn.send(TypeInputAudioBufferAppend, newInputAudioBufferAppendEvent(encoded))
}

// SendText adds a user text message to the conversation and asks for a
// response.
func (b *Bridge) SendText(text string) error {
	conn, err := b.activeConnection()
	if err != nil {
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: text message is empty", ErrInvalidInput)
	}

	if err := conn.send(TypeConversationItemCreate, newUserMessageEvent(text)); err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}
	if err := conn.send(TypeResponseCreate, newResponseCreateEvent()); err != nil {
		return fmt.Errorf("failed to request response: %w", err)
	}
	return nil
}

// Close ends the current connection. It is safe to call from any state and
// more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	conn := b.conn
	if conn == nil {
		notify := func() {}
		if b.state == StateInitializing {
			// the in-flight Start discards its connection
			notify = b.setStateLocked(StateClosed)
		}
		b.mu.Unlock()
		notify()
		return nil
	}
	b.conn = nil
	notify := b.setStateLocked(StateClosing)
	b.mu.Unlock()
	notify()

	err := conn.close()

	b.mu.Lock()
	notify = func() {}
	if b.state == StateClosing {
		notify = b.setStateLocked(StateClosed)
	}
	b.mu.Unlock()
	notify()

	b.options.ClosedCallback(nil)
	logger.Info("realtime session closed")

	if err != nil {
		return fmt.Errorf("failed to close realtime connection: %w", err)
	}
	return nil
}

func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateConnected && b.conn != nil
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) activeConnection() (*connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateConnected || b.conn == nil {
		return nil, ErrNoActiveSession
	}
	return b.conn, nil
}

func (b *Bridge) isCurrent(conn *connection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn == conn
}

// setStateLocked must be called with mu held. The returned func reports the
// transition and must be called after mu is released.
func (b *Bridge) setStateLocked(to State) func() {
	from := b.state
	if from == to {
		return func() {}
	}
	b.state = to
	b.options.Metrics.SetSessionState(string(to), allStates...)
	logger.Debug("realtime session state changed", "from", from, "to", to)

	return func() { b.options.StateChangeCallback(from, to) }
}

func (b *Bridge) readLoop(conn *connection) {
	for {
		msg, err := conn.read()
		if err != nil {
			b.handleReadFailure(conn, err)
			return
		}
		if !b.isCurrent(conn) {
			continue
		}
		b.dispatch(msg)
	}
}

func (b *Bridge) handleReadFailure(conn *connection, readErr error) {
	b.mu.Lock()
	if b.conn != conn {
		// closed or replaced on purpose
		b.mu.Unlock()
		return
	}
	b.conn = nil

	var closedErr error
	var notify func()
	if isNormalClosure(readErr) {
		logger.Info("realtime connection closed by remote", "reason", readErr)
		notify = b.setStateLocked(StateClosed)
	} else {
		logger.Error("realtime connection lost", "error", readErr)
		closedErr = fmt.Errorf("%w: %w", ErrConnection, readErr)
		notify = b.setStateLocked(StateIdle)
	}
	b.mu.Unlock()
	notify()

	_ = conn.close()
	b.options.ClosedCallback(closedErr)
}
