// Package firestore stores recorded conversation turns in Cloud Firestore.
//
// Every session is one document in the configured collection, holding the
// full history as of the latest turn. Each turn is also written to the
// session's turns subcollection, keyed by its timestamp.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/koscakluka/ema-realtime/core/conversations"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

const (
	DefaultCollection = "sessions"
	turnsCollection   = "turns"
)

var ErrMissingSessionID = errors.New("turn record has no session id")

type Options struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON []byte
	Collection      string
}

type Option func(*Options)

func WithProjectID(projectID string) Option {
	return func(o *Options) {
		o.ProjectID = projectID
	}
}

func WithCredentialsFile(path string) Option {
	return func(o *Options) {
		o.CredentialsFile = path
	}
}

func WithCredentialsJSON(credentials []byte) Option {
	return func(o *Options) {
		o.CredentialsJSON = credentials
	}
}

func WithCollection(collection string) Option {
	return func(o *Options) {
		o.Collection = collection
	}
}

// documentWriter is the part of the Firestore client the sink needs.
type documentWriter interface {
	Set(ctx context.Context, path []string, data any) error
	Close() error
}

type clientWriter struct {
	client *firestore.Client
}

// Set writes data to the document addressed by alternating collection and
// document ids.
func (w clientWriter) Set(ctx context.Context, path []string, data any) error {
	if len(path) < 2 || len(path)%2 != 0 {
		return fmt.Errorf("invalid document path %v", path)
	}

	doc := w.client.Collection(path[0]).Doc(path[1])
	for i := 2; i < len(path); i += 2 {
		doc = doc.Collection(path[i]).Doc(path[i+1])
	}
	_, err := doc.Set(ctx, data)
	return err
}

func (w clientWriter) Close() error { return w.client.Close() }

type Sink struct {
	writer     documentWriter
	collection string
}

// NewSink connects to Firestore through the Firebase Admin SDK. Without
// explicit credentials the application default credentials are used.
func NewSink(ctx context.Context, opts ...Option) (*Sink, error) {
	options := Options{Collection: DefaultCollection}
	for _, opt := range opts {
		opt(&options)
	}

	var clientOptions []option.ClientOption
	switch {
	case len(options.CredentialsJSON) > 0:
		clientOptions = append(clientOptions, option.WithCredentialsJSON(options.CredentialsJSON))
	case options.CredentialsFile != "":
		clientOptions = append(clientOptions, option.WithCredentialsFile(options.CredentialsFile))
	}

	var config *firebase.Config
	if options.ProjectID != "" {
		config = &firebase.Config{ProjectID: options.ProjectID}
	}

	app, err := firebase.NewApp(ctx, config, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return newSink(clientWriter{client: client}, options.Collection), nil
}

func newSink(writer documentWriter, collection string) *Sink {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Sink{writer: writer, collection: collection}
}

type sessionDocument struct {
	SessionID   string               `firestore:"sessionId"`
	LastTurn    conversations.Turn   `firestore:"lastTurn"`
	FullHistory []conversations.Turn `firestore:"fullHistory"`
	TurnCount   int                  `firestore:"turnCount"`
}

func (s *Sink) SaveTurn(ctx context.Context, record conversations.TurnRecord) (err error) {
	ctx, span := tracer.Start(ctx, "save turn",
		trace.WithAttributes(
			attribute.String("session_id", record.SessionID),
			attribute.String("collection", s.collection),
		),
	)
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to save turn")
		}
	}()

	if record.SessionID == "" {
		return ErrMissingSessionID
	}

	turnID := strconv.FormatInt(record.Turn.TimestampMillis, 10)
	if err := s.writer.Set(ctx, []string{s.collection, record.SessionID, turnsCollection, turnID}, record.Turn); err != nil {
		return fmt.Errorf("failed to write turn: %w", err)
	}

	session := sessionDocument{
		SessionID:   record.SessionID,
		LastTurn:    record.Turn,
		FullHistory: record.FullHistory,
		TurnCount:   len(record.FullHistory),
	}
	if err := s.writer.Set(ctx, []string{s.collection, record.SessionID}, session); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	logger.Debug("turn stored", "sessionId", record.SessionID, "turn", turnID)
	return nil
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
