package conversations

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/koscakluka/ema-realtime/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAppendRecordsTrimmedTurn(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	recorder := NewRecorder(WithClock(fixedClock(now)))

	turn, ok := recorder.Append(context.Background(), "  hello  ", "\nHi there\n")
	if !ok {
		t.Fatalf("expected turn to be recorded")
	}
	if turn.Transcription != "hello" || turn.Response != "Hi there" {
		t.Fatalf("expected trimmed turn, got %+v", turn)
	}
	if turn.TimestampMillis != now.UnixMilli() {
		t.Fatalf("expected timestamp %d, got %d", now.UnixMilli(), turn.TimestampMillis)
	}

	turns := recorder.Turns()
	if len(turns) != 1 || turns[0] != turn {
		t.Fatalf("expected log to contain the recorded turn, got %+v", turns)
	}
}

func TestAppendSkipsBlankParts(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	saved := 0
	recorder := NewRecorder(
		WithMetrics(m),
		WithSink(TurnSinkFunc(func(context.Context, TurnRecord) error {
			saved++
			return nil
		})),
	)
	defer recorder.Close()

	testCases := []struct {
		transcription string
		response      string
	}{
		{transcription: "", response: "Hi"},
		{transcription: "hello", response: "   "},
		{transcription: " \t", response: ""},
	}
	for _, testCase := range testCases {
		if _, ok := recorder.Append(context.Background(), testCase.transcription, testCase.response); ok {
			t.Fatalf("expected %q/%q to be skipped", testCase.transcription, testCase.response)
		}
	}

	if got := len(recorder.Turns()); got != 0 {
		t.Fatalf("expected empty log, got %d turns", got)
	}
	if saved != 0 {
		t.Fatalf("expected sink not to be called, got %d calls", saved)
	}
	if got := testutil.ToFloat64(m.TurnsSkipped); got != 3 {
		t.Fatalf("expected 3 skipped turns, got %v", got)
	}
}

func TestAppendForwardsFullHistory(t *testing.T) {
	var records []TurnRecord
	recorder := NewRecorder(WithSink(TurnSinkFunc(func(_ context.Context, record TurnRecord) error {
		records = append(records, record)
		return nil
	})))

	recorder.Append(context.Background(), "first", "one")
	recorder.Append(context.Background(), "second", "two")
	recorder.Close()

	if len(records) != 2 {
		t.Fatalf("expected 2 forwarded records, got %d", len(records))
	}
	last := records[1]
	if last.SessionID != recorder.SessionID() {
		t.Fatalf("expected session id %q, got %q", recorder.SessionID(), last.SessionID)
	}
	if last.Turn.Transcription != "second" {
		t.Fatalf("expected latest turn, got %+v", last.Turn)
	}
	if len(last.FullHistory) != 2 || last.FullHistory[0].Transcription != "first" {
		t.Fatalf("expected ordered full history, got %+v", last.FullHistory)
	}
	if len(records[0].FullHistory) != 1 {
		t.Fatalf("expected earlier record history to be unaffected, got %+v", records[0].FullHistory)
	}
}

func TestSinkFailureKeepsTurn(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	recorder := NewRecorder(
		WithMetrics(m),
		WithSink(TurnSinkFunc(func(context.Context, TurnRecord) error {
			return errors.New("storage offline")
		})),
	)

	if _, ok := recorder.Append(context.Background(), "hello", "Hi"); !ok {
		t.Fatalf("expected turn to be recorded")
	}
	recorder.Close()
	if got := len(recorder.Turns()); got != 1 {
		t.Fatalf("expected turn to stay in the log, got %d turns", got)
	}
	if got := testutil.ToFloat64(m.PersistFailures); got != 1 {
		t.Fatalf("expected 1 persist failure, got %v", got)
	}
}

func TestAppendDoesNotWaitForSink(t *testing.T) {
	release := make(chan struct{})
	saved := make(chan TurnRecord, 1)
	recorder := NewRecorder(WithSink(TurnSinkFunc(func(_ context.Context, record TurnRecord) error {
		<-release
		saved <- record
		return nil
	})))

	appended := make(chan bool, 1)
	go func() {
		_, ok := recorder.Append(context.Background(), "hello", "Hi there")
		appended <- ok
	}()

	select {
	case ok := <-appended:
		if !ok {
			t.Fatalf("expected turn to be recorded")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected Append to return while the sink is blocked")
	}

	close(release)
	recorder.Close()
	select {
	case record := <-saved:
		if record.Turn.Response != "Hi there" {
			t.Fatalf("expected queued record to reach the sink, got %+v", record)
		}
	default:
		t.Fatalf("expected Close to wait for the queued save")
	}
}

func TestSaveIsBoundedByTimeout(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	recorder := NewRecorder(
		WithMetrics(m),
		WithSaveTimeout(20*time.Millisecond),
		WithSink(TurnSinkFunc(func(ctx context.Context, _ TurnRecord) error {
			<-ctx.Done()
			return ctx.Err()
		})),
	)

	recorder.Append(context.Background(), "hello", "Hi")
	recorder.Close()

	if got := testutil.ToFloat64(m.PersistFailures); got != 1 {
		t.Fatalf("expected timed out save to count as a failure, got %v", got)
	}
}

func TestSaveOutlivesCallerContext(t *testing.T) {
	var saveErr error
	recorder := NewRecorder(WithSink(TurnSinkFunc(func(ctx context.Context, _ TurnRecord) error {
		saveErr = ctx.Err()
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	recorder.Append(ctx, "hello", "Hi")
	cancel()
	recorder.Close()

	if saveErr != nil {
		t.Fatalf("expected save context to ignore caller cancellation, got %v", saveErr)
	}
}

func TestFullQueueDropsTurn(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	recorder := NewRecorder(
		WithMetrics(m),
		WithQueueSize(1),
		WithSink(TurnSinkFunc(func(context.Context, TurnRecord) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		})),
	)

	recorder.Append(context.Background(), "first", "one")
	<-started
	recorder.Append(context.Background(), "second", "two")
	recorder.Append(context.Background(), "third", "three")

	if got := testutil.ToFloat64(m.PersistFailures); got != 1 {
		t.Fatalf("expected 1 dropped save, got %v", got)
	}
	if got := len(recorder.Turns()); got != 3 {
		t.Fatalf("expected dropped save to keep the turn in the log, got %d turns", got)
	}

	close(release)
	recorder.Close()
}

func TestCloseIsIdempotent(t *testing.T) {
	saved := 0
	recorder := NewRecorder(WithSink(TurnSinkFunc(func(context.Context, TurnRecord) error {
		saved++
		return nil
	})))

	recorder.Close()
	recorder.Close()
	if _, ok := recorder.Append(context.Background(), "hello", "Hi"); !ok {
		t.Fatalf("expected turn to be recorded after close")
	}
	if saved != 0 {
		t.Fatalf("expected no saves after close, got %d", saved)
	}
}

func TestResetStartsNewSession(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	recorder := NewRecorder(WithClock(fixedClock(now)))
	recorder.Append(context.Background(), "hello", "Hi")

	previous := recorder.SessionID()
	next := recorder.Reset()

	if next == previous {
		t.Fatalf("expected a new session id, both were %q", next)
	}
	if recorder.SessionID() != next {
		t.Fatalf("expected SessionID to return %q, got %q", next, recorder.SessionID())
	}
	if got := len(recorder.Turns()); got != 0 {
		t.Fatalf("expected cleared log, got %d turns", got)
	}
}

func TestSessionIDsAreStrictlyIncreasing(t *testing.T) {
	// a frozen clock must still produce distinct ids
	recorder := NewRecorder(WithClock(fixedClock(time.UnixMilli(42))))

	last, err := strconv.ParseInt(recorder.SessionID(), 10, 64)
	if err != nil {
		t.Fatalf("expected numeric session id, got %q", recorder.SessionID())
	}
	for range 5 {
		id, err := strconv.ParseInt(recorder.Reset(), 10, 64)
		if err != nil {
			t.Fatalf("expected numeric session id: %v", err)
		}
		if id <= last {
			t.Fatalf("expected id greater than %d, got %d", last, id)
		}
		last = id
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	recorder := NewRecorder()
	recorder.Append(context.Background(), "hello", "Hi")

	snapshot := recorder.Snapshot()
	if snapshot.SessionID != recorder.SessionID() {
		t.Fatalf("expected snapshot session id %q, got %q", recorder.SessionID(), snapshot.SessionID)
	}
	if len(snapshot.Turns) != 1 {
		t.Fatalf("expected 1 turn in snapshot, got %d", len(snapshot.Turns))
	}

	snapshot.Turns[0].Response = "changed"
	if got := recorder.Turns()[0].Response; got != "Hi" {
		t.Fatalf("expected recorder to be unaffected by snapshot edits, got %q", got)
	}
}

func TestMultiSinkCallsAllAndJoinsErrors(t *testing.T) {
	errFirst := errors.New("first")
	calls := 0
	sink := MultiSink{
		TurnSinkFunc(func(context.Context, TurnRecord) error {
			calls++
			return errFirst
		}),
		nil,
		TurnSinkFunc(func(context.Context, TurnRecord) error {
			calls++
			return nil
		}),
	}

	err := sink.SaveTurn(context.Background(), TurnRecord{})
	if !errors.Is(err, errFirst) {
		t.Fatalf("expected joined error to contain first error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both sinks to be called, got %d", calls)
	}
}
