package midi

import (
	"bytes"
	"os"
	"sort"

	"github.com/jsphweid/pitchtrack/model"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = errors.Errorf("Error parsing midi file... %v", r)
		}
	}()

	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "Error reading midi file...")
	}
	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return nil, errors.Wrap(err, "Error parsing midi file...")
	}

	return res, nil
}

type noteKey struct {
	channel uint8
	key     uint8
}

type openNote struct {
	start    float64
	velocity uint8
}

// ReadNotes pairs note on/off events into notes timed in seconds from the
// start of the file. Overlapping notes on the same key close first in,
// first out. Notes still sounding when their track ends are closed there.
func ReadNotes(s *smf.SMF) []model.RawNoteEvent {
	var res []model.RawNoteEvent

	for _, track := range s.Tracks {
		var absTicks int64
		var seconds float64
		open := make(map[noteKey][]openNote)

		for _, event := range track {
			absTicks += int64(event.Delta)
			seconds = float64(s.TimeAt(absTicks)) / 1e6

			var channel, key, velocity uint8
			isEnd := false
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				if velocity > 0 {
					k := noteKey{channel, key}
					open[k] = append(open[k], openNote{start: seconds, velocity: velocity})
					continue
				}
				isEnd = true
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				isEnd = true
			}
			if !isEnd {
				continue
			}

			k := noteKey{channel, key}
			pending := open[k]
			if len(pending) == 0 {
				continue
			}
			n := pending[0]
			open[k] = pending[1:]
			res = append(res, model.RawNoteEvent{
				StartSeconds: n.start,
				EndSeconds:   seconds,
				Pitch:        int(key),
				Velocity:     int(n.velocity),
			})
		}

		for k, pending := range open {
			for _, n := range pending {
				res = append(res, model.RawNoteEvent{
					StartSeconds: n.start,
					EndSeconds:   seconds,
					Pitch:        int(k.key),
					Velocity:     int(n.velocity),
				})
			}
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].StartSeconds < res[j].StartSeconds
	})
	return res
}

func ReadNotesFromFile(path string) ([]model.RawNoteEvent, error) {
	s, err := ReadMidiFile(path)
	if err != nil {
		return nil, err
	}
	return ReadNotes(s), nil
}
