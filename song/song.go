package song

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jsphweid/pitchtrack/timeline"
	"github.com/jsphweid/pitchtrack/util"
	"github.com/pkg/errors"
)

var (
	ErrTrackNotFound = errors.New("cannot find track")
	ErrClipNotFound  = errors.New("cannot find clip")
)

type TrackType string

const (
	AudioTrack TrackType = "audio"
	MIDITrack  TrackType = "midi"
)

type Note struct {
	ID        string `yaml:"id" json:"id"`
	Pitch     int    `yaml:"pitch" json:"pitch"`
	Velocity  int    `yaml:"velocity" json:"velocity"`
	StartTick int64  `yaml:"startTick" json:"startTick"`
	EndTick   int64  `yaml:"endTick" json:"endTick"`
}

type Clip struct {
	ID        string `yaml:"id" json:"id"`
	StartTick int64  `yaml:"startTick" json:"startTick"`
	EndTick   int64  `yaml:"endTick" json:"endTick"`

	// audio clips only, relative to the song document
	AudioFile string `yaml:"audioFile,omitempty" json:"audioFile,omitempty"`

	Notes []*Note `yaml:"notes,omitempty,flow" json:"notes,omitempty"`
}

type Track struct {
	ID    string    `yaml:"id" json:"id"`
	Name  string    `yaml:"name,omitempty" json:"name,omitempty"`
	Type  TrackType `yaml:"type" json:"type"`
	Clips []*Clip   `yaml:"clips,omitempty" json:"clips,omitempty"`
}

// Song is the host timeline. Reads go through the exported methods, which
// take a read lock; all mutation happens inside Edit.
type Song struct {
	mu sync.RWMutex

	ID     string                `yaml:"id" json:"id"`
	PPQ    int                   `yaml:"ppq" json:"ppq"`
	Tempos []timeline.TempoEvent `yaml:"tempos,flow" json:"tempos"`
	Tracks []*Track              `yaml:"tracks" json:"tracks"`
}

func New(id string, ppq int, bpm float64) *Song {
	if id == "" {
		id = uuid.New().String()
	}
	return &Song{
		ID:     id,
		PPQ:    ppq,
		Tempos: []timeline.TempoEvent{{Tick: 0, BPM: bpm}},
	}
}

func (s *Song) tempoMap() (*timeline.TempoMap, error) {
	m, err := timeline.NewTempoMap(s.PPQ, s.Tempos)
	if err != nil {
		return nil, errors.Wrapf(err, "song %v has a bad tempo map", s.ID)
	}
	return m, nil
}

func (s *Song) TempoAt(tick int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.tempoMap()
	if err != nil {
		return 0, err
	}
	return m.TempoAt(tick).BPM, nil
}

func (s *Song) TickToSeconds(tick int64) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.tempoMap()
	if err != nil {
		return 0, err
	}
	return m.TickToSeconds(tick), nil
}

func (s *Song) SecondsToTick(seconds float64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.tempoMap()
	if err != nil {
		return 0, err
	}
	return m.SecondsToTick(seconds), nil
}

// Converter returns a constant tempo converter anchored at tick.
func (s *Song) Converter(tick int64) (*timeline.Converter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, err := s.tempoMap()
	if err != nil {
		return nil, err
	}
	return m.Converter(tick), nil
}

func (s *Song) trackIndex(id string) int {
	for i, t := range s.Tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// TrackIndex returns -1 if there is no such track.
func (s *Song) TrackIndex(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackIndex(id)
}

func (s *Song) TrackByID(id string) *Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.trackIndex(id); i >= 0 {
		return s.Tracks[i]
	}
	return nil
}

// Clip looks up a clip on a track. The returned error wraps ErrTrackNotFound
// or ErrClipNotFound.
func (s *Song) Clip(trackID string, clipID string) (*Track, *Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.trackIndex(trackID)
	if i < 0 {
		return nil, nil, errors.Wrapf(ErrTrackNotFound, "track %q", trackID)
	}
	track := s.Tracks[i]
	clip := track.ClipByID(clipID)
	if clip == nil {
		return track, nil, errors.Wrapf(ErrClipNotFound, "clip %q on track %q", clipID, trackID)
	}
	return track, clip, nil
}

func (s *Song) NumTracks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Tracks)
}

// View runs fn while holding the read lock, for readers that walk clips or
// notes directly.
func (s *Song) View(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// Editor is handed to Edit callbacks. It is only valid inside the callback.
type Editor struct {
	song *Song
}

// Edit runs fn with exclusive access to the song. Anything fn creates is
// invisible to other readers until fn returns, whether or not it fails.
func (s *Song) Edit(fn func(e *Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&Editor{song: s})
}

// CreateTrack inserts a new empty track at index, shifting the track
// currently there (and everything after it) down by one.
func (e *Editor) CreateTrack(trackType TrackType, index int) *Track {
	s := e.song
	index = util.Clamp(index, 0, len(s.Tracks))
	t := &Track{ID: uuid.New().String(), Type: trackType}
	s.Tracks = append(s.Tracks, nil)
	copy(s.Tracks[index+1:], s.Tracks[index:])
	s.Tracks[index] = t
	return t
}

// TrackIndex returns -1 if there is no such track.
func (e *Editor) TrackIndex(id string) int {
	return e.song.trackIndex(id)
}

// RemoveTrack reports whether a track was removed.
func (e *Editor) RemoveTrack(id string) bool {
	s := e.song
	i := s.trackIndex(id)
	if i < 0 {
		return false
	}
	s.Tracks = append(s.Tracks[:i], s.Tracks[i+1:]...)
	return true
}

func (e *Editor) SetTempo(tick int64, bpm float64) error {
	if !timeline.ValidBPM(bpm) {
		return errors.Errorf("bpm must be positive and finite, got %v", bpm)
	}
	s := e.song
	for i := range s.Tempos {
		if s.Tempos[i].Tick == tick {
			s.Tempos[i].BPM = bpm
			return nil
		}
	}
	s.Tempos = append(s.Tempos, timeline.TempoEvent{Tick: tick, BPM: bpm})
	return nil
}

func (t *Track) ClipByID(id string) *Clip {
	for _, c := range t.Clips {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// CreateMIDIClip appends a new empty clip covering [startTick, endTick].
// Existing clips are left alone.
func (t *Track) CreateMIDIClip(startTick int64, endTick int64) (*Clip, error) {
	if t.Type != MIDITrack {
		return nil, errors.Errorf("track %v is a %v track, not a midi track", t.ID, t.Type)
	}
	if endTick <= startTick {
		return nil, errors.Errorf("clip end %v must be after start %v", endTick, startTick)
	}
	c := &Clip{ID: uuid.New().String(), StartTick: startTick, EndTick: endTick}
	t.Clips = append(t.Clips, c)
	return c, nil
}

// CreateNote adds a note without touching the clip range and without
// resolving overlaps with notes already in the clip.
func (c *Clip) CreateNote(pitch int, velocity int, startTick int64, endTick int64) (*Note, error) {
	if !util.InRange(pitch, 0, 127) {
		return nil, errors.Errorf("pitch %v is outside the midi range", pitch)
	}
	if endTick <= startTick {
		return nil, errors.Errorf("note end %v must be after start %v", endTick, startTick)
	}
	n := &Note{
		ID:        uuid.New().String(),
		Pitch:     pitch,
		Velocity:  util.Clamp(velocity, 0, 127),
		StartTick: startTick,
		EndTick:   endTick,
	}
	c.Notes = append(c.Notes, n)
	return n, nil
}
