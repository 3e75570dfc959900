package engine

import (
	"context"

	"github.com/jsphweid/pitchtrack/model"
)

// Engine turns staged audio into notes timed from the start of the audio.
// Implementations must be safe for concurrent use; each call gets its own
// request and staged audio.
type Engine interface {
	Transcribe(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error)
}

// Func adapts a plain function to an Engine.
type Func func(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error)

func (f Func) Transcribe(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error) {
	return f(ctx, req)
}

// Static returns the same notes for every request. Useful for wiring tests
// and for running the server without the model installed.
type Static struct {
	Notes []model.RawNoteEvent
}

func (s Static) Transcribe(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := make([]model.RawNoteEvent, len(s.Notes))
	copy(res, s.Notes)
	return res, nil
}
