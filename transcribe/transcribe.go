package transcribe

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jsphweid/pitchtrack/engine"
	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/pitch"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/jsphweid/pitchtrack/stage"
	"github.com/jsphweid/pitchtrack/timeline"
	"github.com/jsphweid/pitchtrack/translate"
	"github.com/pkg/errors"
)

type State int

const (
	Idle State = iota
	ResolvingInputs
	Transcribing
	Translating
	Inserting
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResolvingInputs:
		return "resolving inputs"
	case Transcribing:
		return "transcribing"
	case Translating:
		return "translating"
	case Inserting:
		return "inserting"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Status string

const (
	// every note was inserted
	StatusDone Status = "done"
	// nothing was touched, the inputs could not be resolved
	StatusAborted Status = "aborted"
	// failed before the song was touched
	StatusFailed Status = "failed"
	// failed after the destination track was created; it is left in place
	StatusPartial Status = "partial"
)

var ErrNoAudio = errors.New("no audio data for clip")

// StageError is returned for failures after inputs were resolved.
type StageError struct {
	State State
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transcription failed while %v: %v", e.State, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

type Request struct {
	Selection model.Selection
	Audio     model.AudioData
	Params    model.Params
}

type Result struct {
	Status Status
	// last state entered; for failures this is where it went wrong
	State         State
	TrackID       string
	ClipID        string
	NotesInserted int
}

// Orchestrator runs whole transcriptions against a song. One Orchestrator
// can serve any number of concurrent Runs.
type Orchestrator struct {
	engine engine.Engine
	logger *log.Logger
}

func New(e engine.Engine, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(os.Stderr, "transcribe: ", log.LstdFlags)
	}
	return &Orchestrator{engine: e, logger: logger}
}

type resolved struct {
	track   *song.Track
	clip    *song.Clip
	conv    *timeline.Converter
	request model.TranscriptionRequest
}

func (o *Orchestrator) resolve(s *song.Song, req Request) (*resolved, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	track, clip, err := s.Clip(req.Selection.TrackID, req.Selection.ClipID)
	if err != nil {
		return nil, err
	}
	if clip.EndTick <= clip.StartTick {
		return nil, errors.Errorf("clip %v ends at %v, before it starts at %v", clip.ID, clip.EndTick, clip.StartTick)
	}
	if len(req.Audio.Data) == 0 {
		return nil, errors.Wrapf(ErrNoAudio, "clip %v", clip.ID)
	}
	format, err := stage.NormalizeFormat(req.Audio.Format)
	if err != nil {
		return nil, err
	}
	// one tempo lookup drives both the engine and the translation
	conv, err := s.Converter(clip.StartTick)
	if err != nil {
		return nil, err
	}
	minHz, maxHz, err := pitch.Window(req.Params.MinPitch, req.Params.MaxPitch)
	if err != nil {
		return nil, err
	}

	return &resolved{
		track: track,
		clip:  clip,
		conv:  conv,
		request: model.TranscriptionRequest{
			AudioFormat:    format,
			OnsetThreshold: req.Params.OnsetThreshold,
			FrameThreshold: req.Params.FrameThreshold,
			MinNoteLenMs:   req.Params.MinNoteLenMs,
			MinPitch:       req.Params.MinPitch,
			MaxPitch:       req.Params.MaxPitch,
			MinFreqHz:      minHz,
			MaxFreqHz:      maxHz,
			ClipStartTick:  clip.StartTick,
			ClipEndTick:    clip.EndTick,
			TempoBPM:       conv.BPM,
		},
	}, nil
}

// Run transcribes the selected clip into a new midi track placed right
// before the source track.
//
// Errors resolving the selection, params or audio abort with StatusAborted
// before anything is staged or mutated. Later failures are logged and
// returned as a *StageError alongside a Result saying how far it got. A
// destination track created before a failure is not removed.
func (o *Orchestrator) Run(ctx context.Context, s *song.Song, req Request) (res *Result, err error) {
	res = &Result{State: ResolvingInputs}

	r, err := o.resolve(s, req)
	if err != nil {
		res.Status = StatusAborted
		return res, err
	}

	audio, err := stage.Stage(req.Audio.Data, r.request.AudioFormat)
	if err != nil {
		res.Status = StatusAborted
		return res, err
	}
	defer func() {
		if releaseErr := audio.Release(); releaseErr != nil {
			o.logger.Printf("could not release staged audio %v: %v", audio.Path, releaseErr)
		}
	}()
	r.request.AudioPath = audio.Path
	r.request.OutputDir = audio.OutputDir()

	defer func() {
		if p := recover(); p != nil {
			err = o.fail(res, errors.Errorf("panic: %v", p))
		}
	}()

	res.State = Transcribing
	o.logger.Printf("transcribing clip %v on track %v (%v bpm, %v-%v Hz)",
		r.clip.ID, r.track.ID, r.request.TempoBPM, r.request.MinFreqHz, r.request.MaxFreqHz)
	raw, err := o.engine.Transcribe(ctx, r.request)
	if err != nil {
		return res, o.fail(res, err)
	}

	res.State = Translating
	notes := translate.New(r.conv).Translate(raw)

	res.State = Inserting
	err = s.Edit(func(e *song.Editor) error {
		index := e.TrackIndex(r.track.ID)
		if index < 0 {
			return errors.Wrapf(song.ErrTrackNotFound, "source track %v went away", r.track.ID)
		}
		track := e.CreateTrack(song.MIDITrack, index)
		track.Name = "Transcription"
		res.TrackID = track.ID

		clip, err := track.CreateMIDIClip(r.clip.StartTick, r.clip.EndTick)
		if err != nil {
			return err
		}
		res.ClipID = clip.ID

		for _, n := range notes {
			if _, err := clip.CreateNote(n.Pitch, n.Velocity, n.StartTick, n.EndTick); err != nil {
				return err
			}
			res.NotesInserted++
		}
		return nil
	})
	if err != nil {
		return res, o.fail(res, err)
	}

	res.State = Done
	res.Status = StatusDone
	o.logger.Printf("inserted %v notes into clip %v on track %v", res.NotesInserted, res.ClipID, res.TrackID)
	return res, nil
}

func (o *Orchestrator) fail(res *Result, cause error) error {
	if res.TrackID != "" {
		res.Status = StatusPartial
	} else {
		res.Status = StatusFailed
	}
	err := &StageError{State: res.State, Cause: cause}
	o.logger.Printf("%+v", errors.WithStack(err))
	return err
}
