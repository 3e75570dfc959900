package model

// RawNoteEvent is a note as detected by the transcription engine. Times are
// in seconds relative to the start of the supplied audio.
type RawNoteEvent struct {
	StartSeconds float64 `json:"start_seconds" yaml:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds" yaml:"end_seconds"`
	Pitch        int     `json:"pitch" yaml:"pitch"`
	Velocity     int     `json:"velocity" yaml:"velocity"`
}

// TranslatedNote is a RawNoteEvent placed on the song timeline.
// EndTick is always greater than StartTick.
type TranslatedNote struct {
	Pitch     int
	Velocity  int
	StartTick int64
	EndTick   int64
}
