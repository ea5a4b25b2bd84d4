// Package webhook delivers recorded conversation turns to an HTTP endpoint
// as JSON.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/ema-realtime/core/conversations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 10 * time.Second

var ErrMissingURL = errors.New("webhook url is required")

type Sink struct {
	url     string
	headers http.Header
	client  *http.Client
}

type SinkOption func(*Sink)

// WithHeader adds a header sent with every request, e.g. an authorization
// token expected by the receiving service.
func WithHeader(key, value string) SinkOption {
	return func(s *Sink) {
		s.headers.Add(key, value)
	}
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) SinkOption {
	return func(s *Sink) {
		s.client = client
	}
}

func WithTimeout(timeout time.Duration) SinkOption {
	return func(s *Sink) {
		s.client.Timeout = timeout
	}
}

func NewSink(url string, opts ...SinkOption) (*Sink, error) {
	if url == "" {
		return nil, ErrMissingURL
	}

	s := &Sink{
		url:     url,
		headers: http.Header{},
		client: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "POST turn " + r.URL.Host
				}),
			),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SaveTurn posts record to the webhook. Any non 2xx response is an error.
func (s *Sink) SaveTurn(ctx context.Context, record conversations.TurnRecord) error {
	ctx, span := tracer.Start(ctx, "save turn",
		trace.WithAttributes(
			attribute.String("session_id", record.SessionID),
			attribute.Int("history_length", len(record.FullHistory)),
		),
	)
	defer span.End()

	body, err := json.Marshal(record)
	if err != nil {
		err = fmt.Errorf("failed to marshal turn record: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal failed")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		err = fmt.Errorf("failed to create request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request creation failed")
		return err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to send turn record: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		err := fmt.Errorf("non-2xx HTTP status: %s", resp.Status)
		span.SetAttributes(attribute.String("response.error", string(errorBody)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return err
	}

	logger.Debug("turn delivered", "sessionId", record.SessionID, "status", resp.StatusCode)
	return nil
}
