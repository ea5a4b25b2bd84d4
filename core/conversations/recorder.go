// Package conversations keeps the log of completed conversation turns for
// the current session and hands every new turn to a persistence sink.
package conversations

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-realtime/core/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Turn pairs what the user said with the reply it produced. Turns are never
// modified once recorded.
type Turn struct {
	TimestampMillis int64  `json:"timestamp" firestore:"timestamp"`
	Transcription   string `json:"transcription" firestore:"transcription"`
	Response        string `json:"response" firestore:"response"`
}

// Snapshot is a point-in-time copy of the recorder state.
type Snapshot struct {
	SessionID string
	Turns     []Turn
}

const (
	DefaultSaveTimeout = 10 * time.Second
	DefaultQueueSize   = 64
)

type Recorder struct {
	mu        sync.RWMutex
	sessionID string
	lastID    int64
	turns     []Turn

	sink        TurnSink
	metrics     *metrics.Metrics
	now         func() time.Time
	saveTimeout time.Duration
	queueSize   int

	// queue is drained by a single goroutine so records reach the sink in
	// the order they were appended.
	queue  chan pendingSave
	done   chan struct{}
	closed bool
}

type pendingSave struct {
	ctx    context.Context
	record TurnRecord
}

type RecorderOption func(*Recorder)

func WithSink(sink TurnSink) RecorderOption {
	return func(r *Recorder) {
		r.sink = sink
	}
}

func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

// WithSaveTimeout bounds every single sink call.
func WithSaveTimeout(timeout time.Duration) RecorderOption {
	return func(r *Recorder) {
		r.saveTimeout = timeout
	}
}

// WithQueueSize sets how many records may wait for the sink before new ones
// are dropped.
func WithQueueSize(size int) RecorderOption {
	return func(r *Recorder) {
		r.queueSize = size
	}
}

func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:         time.Now,
		saveTimeout: DefaultSaveTimeout,
		queueSize:   DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.saveTimeout <= 0 {
		r.saveTimeout = DefaultSaveTimeout
	}
	if r.queueSize <= 0 {
		r.queueSize = DefaultQueueSize
	}
	r.sessionID = r.nextSessionIDLocked()

	if r.sink != nil {
		r.queue = make(chan pendingSave, r.queueSize)
		r.done = make(chan struct{})
		go r.saveLoop()
	}
	return r
}

func (r *Recorder) SessionID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionID
}

// Turns returns the recorded turns, oldest first.
func (r *Recorder) Turns() []Turn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.turns)
}

// Values is an iterator over the recorded turns, oldest first.
func (r *Recorder) Values(yield func(Turn) bool) {
	for _, turn := range r.Turns() {
		if !yield(turn) {
			return
		}
	}
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{}
	source := Snapshot{SessionID: r.sessionID, Turns: r.turns}
	if err := copier.CopyWithOption(&snapshot, &source, copier.Option{DeepCopy: true}); err != nil {
		logger.Warn("failed to deep copy conversation snapshot", "error", err)
		return Snapshot{SessionID: r.sessionID, Turns: slices.Clone(r.turns)}
	}
	return snapshot
}

// Reset starts a new logical conversation and returns its session id.
func (r *Recorder) Reset() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.turns = nil
	r.sessionID = r.nextSessionIDLocked()
	logger.Info("started new conversation session", "sessionId", r.sessionID)
	return r.sessionID
}

// Append records a turn when both transcription and response are non-blank
// after trimming, and queues it for the sink without waiting for the save.
// Sink failures are logged and do not undo the append.
func (r *Recorder) Append(ctx context.Context, transcription, response string) (Turn, bool) {
	transcription = strings.TrimSpace(transcription)
	response = strings.TrimSpace(response)
	if transcription == "" || response == "" {
		r.metrics.TurnSkipped()
		return Turn{}, false
	}

	turn := Turn{
		TimestampMillis: r.now().UnixMilli(),
		Transcription:   transcription,
		Response:        response,
	}

	r.mu.Lock()
	r.turns = append(r.turns, turn)
	record := TurnRecord{
		SessionID:   r.sessionID,
		Turn:        turn,
		FullHistory: slices.Clone(r.turns),
	}
	r.enqueueLocked(ctx, record)
	r.mu.Unlock()

	r.metrics.TurnRecorded()
	logger.Info("conversation turn recorded", "sessionId", record.SessionID, "turns", len(record.FullHistory))
	return turn, true
}

// Close stops accepting records and waits until the queued ones have been
// handed to the sink. It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.queue != nil {
		close(r.queue)
	}
	r.mu.Unlock()

	if r.done != nil {
		<-r.done
	}
}

func (r *Recorder) enqueueLocked(ctx context.Context, record TurnRecord) {
	if r.queue == nil {
		return
	}
	if r.closed {
		logger.Warn("recorder closed, conversation turn not saved", "sessionId", record.SessionID)
		return
	}

	// the save outlives the caller, only its values are kept
	select {
	case r.queue <- pendingSave{ctx: context.WithoutCancel(ctx), record: record}:
	default:
		r.metrics.PersistFailed()
		logger.Error("save queue full, dropping conversation turn", "sessionId", record.SessionID, "queued", len(r.queue))
	}
}

func (r *Recorder) saveLoop() {
	defer close(r.done)
	for pending := range r.queue {
		r.save(pending.ctx, pending.record)
	}
}

func (r *Recorder) save(ctx context.Context, record TurnRecord) {
	ctx, cancel := context.WithTimeout(ctx, r.saveTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "save conversation turn", trace.WithAttributes(
		attribute.String("session_id", record.SessionID),
		attribute.Int("history_length", len(record.FullHistory)),
	))
	defer span.End()

	if err := r.sink.SaveTurn(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save conversation turn")
		r.metrics.PersistFailed()
		logger.Error("failed to save conversation turn", "sessionId", record.SessionID, "error", err)
	}
}

// nextSessionIDLocked returns a millisecond timestamp id that is strictly
// greater than every id handed out before.
func (r *Recorder) nextSessionIDLocked() string {
	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return strconv.FormatInt(id, 10)
}
