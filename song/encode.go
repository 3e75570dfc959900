package song

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jsphweid/pitchtrack/constants"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Decode reads a YAML song document. Missing ppq and tempo fall back to the
// defaults for new songs.
func Decode(r io.Reader) (*Song, error) {
	var s Song
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "could not decode song")
	}
	if s.PPQ == 0 {
		s.PPQ = constants.DefaultPPQ
	}
	if len(s.Tempos) == 0 {
		s.Tempos = New(s.ID, s.PPQ, constants.DefaultBPM).Tempos
	}
	if _, err := s.tempoMap(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Song) EncodeYAML(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrapf(err, "could not encode song %v", s.ID)
	}
	return enc.Close()
}

func (s *Song) EncodeJSON(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.NewEncoder(w).Encode(s)
}

func ReadFile(path string) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open song file")
	}
	defer f.Close()
	return Decode(f)
}

func (s *Song) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create song file")
	}
	defer f.Close()
	return s.EncodeYAML(f)
}
