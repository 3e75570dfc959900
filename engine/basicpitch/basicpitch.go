package basicpitch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jsphweid/pitchtrack/midi"
	"github.com/jsphweid/pitchtrack/model"
	"github.com/pkg/errors"
)

// ProcessError is a failed basic-pitch run.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("basic-pitch failed (exit %d): %s", e.ExitCode, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("basic-pitch failed (exit %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// Model is the process wide handle to the basic-pitch executable and its
// saved model. It is resolved once on first use and read only afterwards.
type Model struct {
	Bin  string
	Path string

	once    sync.Once
	binPath string
	err     error
}

func NewModel(bin string, path string) *Model {
	return &Model{Bin: bin, Path: path}
}

func (m *Model) resolve() (string, error) {
	m.once.Do(func() {
		m.binPath, m.err = exec.LookPath(m.Bin)
		if m.err != nil {
			m.err = errors.Wrapf(m.err, "basic-pitch executable %q not found", m.Bin)
			return
		}
		if m.Path != "" {
			if _, err := os.Stat(m.Path); err != nil {
				m.err = errors.Wrapf(err, "basic-pitch model %q not found", m.Path)
			}
		}
	})
	return m.binPath, m.err
}

// Engine transcribes by running the basic-pitch CLI and reading back the
// MIDI it writes next to the staged audio.
type Engine struct {
	model  *Model
	runner Runner
}

func New(m *Model, r Runner) *Engine {
	if r == nil {
		r = ExecRunner{}
	}
	return &Engine{model: m, runner: r}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (e *Engine) args(outDir string, req model.TranscriptionRequest) []string {
	args := []string{
		"--save-midi",
		"--onset-threshold", formatFloat(req.OnsetThreshold),
		"--frame-threshold", formatFloat(req.FrameThreshold),
		"--minimum-note-length", strconv.Itoa(req.MinNoteLenMs),
		"--minimum-frequency", strconv.Itoa(req.MinFreqHz),
		"--maximum-frequency", strconv.Itoa(req.MaxFreqHz),
		"--midi-tempo", formatFloat(req.TempoBPM),
	}
	if e.model.Path != "" {
		args = append(args, "--model-path", e.model.Path)
	}
	return append(args, outDir, req.AudioPath)
}

// midiPath is where basic-pitch saves the MIDI for audioPath.
func midiPath(outDir string, audioPath string) string {
	base := filepath.Base(audioPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outDir, stem+"_basic_pitch.mid")
}

func (e *Engine) Transcribe(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error) {
	bin, err := e.model.resolve()
	if err != nil {
		return nil, err
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(req.AudioPath), "basic_pitch")
	}
	if err := os.MkdirAll(outDir, 0700); err != nil {
		return nil, errors.Wrap(err, "could not create basic-pitch output dir")
	}

	result, err := e.runner.Run(ctx, bin, e.args(outDir, req)...)
	if err != nil {
		pe := &ProcessError{Cause: err}
		if result != nil {
			pe.ExitCode = result.ExitCode
			pe.Stderr = result.Stderr
		}
		return nil, pe
	}

	notes, err := midi.ReadNotesFromFile(midiPath(outDir, req.AudioPath))
	if err != nil {
		return nil, errors.Wrap(err, "could not read basic-pitch output")
	}
	return notes, nil
}
