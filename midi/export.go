package midi

import (
	"io"
	"sort"

	"github.com/jsphweid/pitchtrack/song"
	"github.com/jsphweid/pitchtrack/timeline"
	"github.com/jsphweid/pitchtrack/util"
	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

type timedMsg struct {
	tick  int64
	isOff bool
	msg   []byte
}

// addTimed appends msgs to track converting absolute ticks into deltas.
// Offs sort before ons on the same tick so repeated notes retrigger.
func addTimed(track *smf.Track, msgs []timedMsg) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].isOff && !msgs[j].isOff
	})
	var last int64
	for _, m := range msgs {
		track.Add(uint32(m.tick-last), m.msg)
		last = m.tick
	}
	track.Close(0)
}

// WriteClip writes a format 1 SMF with a tempo track and one note track.
// Ticks stay absolute song ticks; with fromClipStart they are shifted so the
// clip starts at tick 0 and the tempo at the clip start is used throughout.
func WriteClip(w io.Writer, ppq int, tempos []timeline.TempoEvent, clip *song.Clip, fromClipStart bool) error {
	if ppq <= 0 || ppq > 0x7FFF {
		return errors.Errorf("cannot write %v ticks per quarter note", ppq)
	}
	tm, err := timeline.NewTempoMap(ppq, tempos)
	if err != nil {
		return err
	}

	var offset int64
	tempoMsgs := []timedMsg{}
	if fromClipStart {
		offset = clip.StartTick
		tempoMsgs = append(tempoMsgs, timedMsg{tick: 0, msg: smf.MetaTempo(tm.TempoAt(clip.StartTick).BPM)})
	} else {
		for _, e := range tm.Events() {
			tempoMsgs = append(tempoMsgs, timedMsg{tick: e.Tick, msg: smf.MetaTempo(e.BPM)})
		}
	}

	var noteMsgs []timedMsg
	for _, n := range clip.Notes {
		start := n.StartTick - offset
		end := n.EndTick - offset
		if start < 0 {
			return errors.Errorf("note %v starts before the clip", n.ID)
		}
		key := uint8(n.Pitch)
		// a zero velocity note on reads back as a note off
		velocity := uint8(util.Clamp(n.Velocity, 1, 127))
		noteMsgs = append(noteMsgs,
			timedMsg{tick: start, msg: gomidi.NoteOn(0, key, velocity)},
			timedMsg{tick: end, isOff: true, msg: gomidi.NoteOff(0, key)},
		)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ppq)

	var tempoTrack smf.Track
	tempoTrack.Add(0, smf.MetaMeter(4, 4))
	addTimed(&tempoTrack, tempoMsgs)
	if err := s.Add(tempoTrack); err != nil {
		return errors.Wrap(err, "error adding tempo track")
	}

	var noteTrack smf.Track
	addTimed(&noteTrack, noteMsgs)
	if err := s.Add(noteTrack); err != nil {
		return errors.Wrap(err, "error adding note track")
	}

	_, err = s.WriteTo(w)
	return errors.Wrap(err, "error writing midi")
}
