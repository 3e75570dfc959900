package song

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSong() *Song {
	s := New("test", 480, 120)
	s.Tracks = []*Track{
		{ID: "drums", Type: AudioTrack},
		{ID: "vox", Type: AudioTrack, Clips: []*Clip{{ID: "take1", StartTick: 1920, EndTick: 3840}}},
	}
	return s
}

func TestClipLookup(t *testing.T) {
	s := newTestSong()

	track, clip, err := s.Clip("vox", "take1")
	require.NoError(t, err)
	assert.Equal(t, "vox", track.ID)
	assert.Equal(t, int64(1920), clip.StartTick)

	_, _, err = s.Clip("nope", "take1")
	assert.True(t, errors.Is(err, ErrTrackNotFound))

	_, _, err = s.Clip("vox", "nope")
	assert.True(t, errors.Is(err, ErrClipNotFound))
}

func TestCreateTrackIsAdjacent(t *testing.T) {
	s := newTestSong()
	var created *Track
	err := s.Edit(func(e *Editor) error {
		created = e.CreateTrack(MIDITrack, s.trackIndex("vox"))
		return nil
	})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(3, s.NumTracks())
	assert.Equal(1, s.TrackIndex(created.ID))
	assert.Equal(2, s.TrackIndex("vox"))
	assert.Equal(0, s.TrackIndex("drums"))
}

func TestCreateTrackClampsIndex(t *testing.T) {
	s := newTestSong()
	s.Edit(func(e *Editor) error {
		e.CreateTrack(MIDITrack, 99)
		e.CreateTrack(MIDITrack, -4)
		return nil
	})

	assert.Equal(t, MIDITrack, s.Tracks[0].Type)
	assert.Equal(t, MIDITrack, s.Tracks[3].Type)
}

func TestRemoveTrack(t *testing.T) {
	s := newTestSong()
	s.Edit(func(e *Editor) error {
		assert.True(t, e.RemoveTrack("drums"))
		assert.False(t, e.RemoveTrack("drums"))
		return nil
	})
	assert.Nil(t, s.TrackByID("drums"))
}

func TestCreateMIDIClip(t *testing.T) {
	track := &Track{ID: "t", Type: MIDITrack}
	clip, err := track.CreateMIDIClip(100, 200)
	require.NoError(t, err)
	assert.Equal(t, clip, track.ClipByID(clip.ID))

	_, err = track.CreateMIDIClip(200, 200)
	assert.Error(t, err)

	audio := &Track{ID: "a", Type: AudioTrack}
	_, err = audio.CreateMIDIClip(0, 10)
	assert.Error(t, err)
}

func TestCreateNoteDoesNotRerangeClip(t *testing.T) {
	clip := &Clip{ID: "c", StartTick: 0, EndTick: 100}
	n, err := clip.CreateNote(60, 200, 50, 500)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(127, n.Velocity)
	assert.Equal(int64(100), clip.EndTick)
	assert.Len(clip.Notes, 1)

	_, err = clip.CreateNote(60, 100, 10, 10)
	assert.Error(err)
	_, err = clip.CreateNote(128, 100, 10, 11)
	assert.Error(err)
}

func TestTempoQueries(t *testing.T) {
	s := newTestSong()
	require.NoError(t, s.Edit(func(e *Editor) error {
		return e.SetTempo(1920, 60)
	}))

	bpm, err := s.TempoAt(1920)
	require.NoError(t, err)
	assert.Equal(t, 60.0, bpm)

	seconds, err := s.TickToSeconds(2400)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, seconds, 1e-12)

	tick, err := s.SecondsToTick(3.0)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), tick)
}

func TestYAMLRoundTripKeepsStructure(t *testing.T) {
	s := newTestSong()
	var buf bytes.Buffer
	require.NoError(t, s.EncodeYAML(&buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(s.ID, decoded.ID)
	assert.Equal(s.Tempos, decoded.Tempos)
	assert.Equal(2, decoded.NumTracks())
	_, clip, err := decoded.Clip("vox", "take1")
	assert.NoError(err)
	assert.Equal(int64(3840), clip.EndTick)
}

func TestDecodeFillsDefaults(t *testing.T) {
	doc := `
id: minimal
tracks:
  - id: a
    type: audio
    clips:
      - id: c
        startTick: 0
        endTick: 960
        audioFile: a.ogg
`
	s, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(480, s.PPQ)
	bpm, _ := s.TempoAt(0)
	assert.Equal(120.0, bpm)
	assert.Equal("a.ogg", s.Tracks[0].Clips[0].AudioFile)
}

func TestDecodeRejectsBadTempo(t *testing.T) {
	_, err := Decode(strings.NewReader("id: x\ntempos: [{tick: 0, bpm: -1}]\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsInfiniteTempo(t *testing.T) {
	_, err := Decode(strings.NewReader("id: x\ntempos: [{tick: 0, bpm: .inf}]\n"))
	assert.Error(t, err)
	_, err = Decode(strings.NewReader("id: x\ntempos: [{tick: 0, bpm: .nan}]\n"))
	assert.Error(t, err)
}

func TestSetTempoRejectsNonFinite(t *testing.T) {
	s := newTestSong()
	for _, bpm := range []float64{0, math.Inf(1), math.NaN()} {
		err := s.Edit(func(e *Editor) error {
			return e.SetTempo(1920, bpm)
		})
		assert.Error(t, err, "bpm %v", bpm)
	}
	bpm, err := s.TempoAt(1920)
	require.NoError(t, err)
	assert.Equal(t, 120.0, bpm)
}
