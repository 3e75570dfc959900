package model

import (
	"github.com/jsphweid/pitchtrack/constants"
	"github.com/jsphweid/pitchtrack/util"
	"github.com/pkg/errors"
)

// ErrInvalidParams is wrapped by every error returned from Params.Validate.
var ErrInvalidParams = errors.New("invalid transcription params")

// Selection identifies the audio clip the user asked to transcribe.
type Selection struct {
	TrackID string `json:"trackId" yaml:"trackId"`
	ClipID  string `json:"clipId" yaml:"clipId"`
}

// AudioData is the clip audio, already converted by the host.
type AudioData struct {
	Format     string `json:"format" yaml:"format"`
	SampleRate int    `json:"sampleRate,omitempty" yaml:"sampleRate,omitempty"`
	Data       []byte `json:"data" yaml:"-"`
}

// Params are the user facing knobs of a transcription.
type Params struct {
	OnsetThreshold float64 `json:"onsetThreshold" yaml:"onsetThreshold"`
	FrameThreshold float64 `json:"frameThresh" yaml:"frameThresh"`
	MinNoteLenMs   int     `json:"minNoteLen" yaml:"minNoteLen"`
	MinPitch       int     `json:"minPitch" yaml:"minPitch"`
	MaxPitch       int     `json:"maxPitch" yaml:"maxPitch"`
}

func DefaultParams() Params {
	return Params{
		OnsetThreshold: constants.DefaultOnsetThreshold,
		FrameThreshold: constants.DefaultFrameThreshold,
		MinNoteLenMs:   constants.DefaultNoteLengthMs,
		MinPitch:       constants.MinAllowedPitch,
		MaxPitch:       constants.MaxAllowedPitch,
	}
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidParams, format, args...)
}

func (p Params) Validate() error {
	if !util.InRange(p.OnsetThreshold, constants.MinThreshold, constants.MaxThreshold) {
		return invalid("onsetThreshold %v outside [%v, %v]", p.OnsetThreshold, constants.MinThreshold, constants.MaxThreshold)
	}
	if !util.InRange(p.FrameThreshold, constants.MinThreshold, constants.MaxThreshold) {
		return invalid("frameThresh %v outside [%v, %v]", p.FrameThreshold, constants.MinThreshold, constants.MaxThreshold)
	}
	if !util.InRange(p.MinNoteLenMs, constants.MinNoteLengthMs, constants.MaxNoteLengthMs) {
		return invalid("minNoteLen %v outside [%v, %v]", p.MinNoteLenMs, constants.MinNoteLengthMs, constants.MaxNoteLengthMs)
	}
	if !util.InRange(p.MinPitch, constants.MinAllowedPitch, constants.MaxAllowedPitch) {
		return invalid("minPitch %v outside [%v, %v]", p.MinPitch, constants.MinAllowedPitch, constants.MaxAllowedPitch)
	}
	if !util.InRange(p.MaxPitch, constants.MinAllowedPitch, constants.MaxAllowedPitch) {
		return invalid("maxPitch %v outside [%v, %v]", p.MaxPitch, constants.MinAllowedPitch, constants.MaxAllowedPitch)
	}
	if p.MinPitch > p.MaxPitch {
		return invalid("minPitch %v is above maxPitch %v", p.MinPitch, p.MaxPitch)
	}
	return nil
}

// TranscriptionRequest is everything the engine needs for one invocation.
type TranscriptionRequest struct {
	AudioPath   string
	AudioFormat string
	// scratch dir for engine outputs, removed with the staged audio
	OutputDir string

	OnsetThreshold float64
	FrameThreshold float64
	MinNoteLenMs   int

	MinPitch  int
	MaxPitch  int
	MinFreqHz int
	MaxFreqHz int

	ClipStartTick int64
	ClipEndTick   int64

	// tempo at ClipStartTick, used for the whole clip
	TempoBPM float64
}
