package translate

import (
	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/timeline"
)

// Translator places engine notes onto the song timeline. The converter is
// anchored at the clip start, so raw note times only need the clip start
// seconds added before conversion.
type Translator struct {
	conv *timeline.Converter
}

func New(conv *timeline.Converter) *Translator {
	return &Translator{conv: conv}
}

// Note never fails: a note that collapses to zero or negative length is
// stretched to one tick instead of being dropped.
func (t *Translator) Note(raw model.RawNoteEvent) model.TranslatedNote {
	clipStartSeconds := t.conv.TickToSeconds(t.conv.AnchorTick)
	startTick := t.conv.SecondsToTick(clipStartSeconds + raw.StartSeconds)
	endTick := t.conv.SecondsToTick(clipStartSeconds + raw.EndSeconds)
	if endTick <= startTick {
		endTick = startTick + 1
	}
	return model.TranslatedNote{
		Pitch:     raw.Pitch,
		Velocity:  raw.Velocity,
		StartTick: startTick,
		EndTick:   endTick,
	}
}

// Translate returns exactly one note per raw event, in the same order.
// Duplicates are kept.
func (t *Translator) Translate(raw []model.RawNoteEvent) []model.TranslatedNote {
	res := make([]model.TranslatedNote, 0, len(raw))
	for _, r := range raw {
		res = append(res, t.Note(r))
	}
	return res
}

// Translate is a shortcut for a clip starting at song time zero seconds.
func Translate(raw []model.RawNoteEvent, clipStartTick int64, bpm float64, ppq int) ([]model.TranslatedNote, error) {
	conv, err := timeline.NewConverter(ppq, bpm, clipStartTick, 0)
	if err != nil {
		return nil, err
	}
	return New(conv).Translate(raw), nil
}
