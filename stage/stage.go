package stage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Audio is clip audio written to a private temp dir for the engine to read.
// The engine may also write its own outputs into Dir.
type Audio struct {
	Dir    string
	Path   string
	Format string
}

var ErrInvalidFormat = errors.New("invalid audio format")

var validFormat = regexp.MustCompile(`^[a-z0-9]+$`)

// NormalizeFormat lowercases format and drops a leading dot. Anything left
// that is not a plain alphanumeric extension is rejected.
func NormalizeFormat(format string) (string, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	if format == "" {
		return "", errors.Wrap(ErrInvalidFormat, "audio format is required")
	}
	if !validFormat.MatchString(format) {
		return "", errors.Wrapf(ErrInvalidFormat, "%q", format)
	}
	return format, nil
}

// Stage writes payload to a fresh temp dir. Callers must Release the result.
func Stage(payload []byte, format string) (*Audio, error) {
	if len(payload) == 0 {
		return nil, errors.New("no audio data to stage")
	}
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "pitchtrack-*")
	if err != nil {
		return nil, errors.Wrap(err, "could not create staging dir")
	}
	path := filepath.Join(dir, uuid.New().String()+"."+format)
	if err := os.WriteFile(path, payload, 0600); err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrap(err, "could not write staged audio")
	}
	return &Audio{Dir: dir, Path: path, Format: format}, nil
}

// OutputDir is where the engine should put anything it produces.
func (a *Audio) OutputDir() string {
	return filepath.Join(a.Dir, "out")
}

// Release removes everything staged. Safe to call more than once.
func (a *Audio) Release() error {
	if a == nil || a.Dir == "" {
		return nil
	}
	err := os.RemoveAll(a.Dir)
	a.Dir = ""
	return err
}
