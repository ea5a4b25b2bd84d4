package conversations

import (
	"context"
	"errors"
)

// TurnRecord is what a persistence collaborator receives for every recorded
// turn.
type TurnRecord struct {
	SessionID   string `json:"sessionId" firestore:"sessionId"`
	Turn        Turn   `json:"turn" firestore:"turn"`
	FullHistory []Turn `json:"fullHistory" firestore:"fullHistory"`
}

type TurnSink interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
}

type TurnSinkFunc func(ctx context.Context, record TurnRecord) error

func (f TurnSinkFunc) SaveTurn(ctx context.Context, record TurnRecord) error {
	return f(ctx, record)
}

// MultiSink forwards every record to all of its sinks, in order, and joins
// their errors.
type MultiSink []TurnSink

func (m MultiSink) SaveTurn(ctx context.Context, record TurnRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.SaveTurn(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
