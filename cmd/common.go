package cmd

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jsphweid/pitchtrack/constants"
	"github.com/jsphweid/pitchtrack/db"
	"github.com/jsphweid/pitchtrack/engine"
	"github.com/jsphweid/pitchtrack/engine/basicpitch"
	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/store"
	"github.com/jsphweid/pitchtrack/transcribe"
	"github.com/jsphweid/pitchtrack/util"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	modelOnce   sync.Once
	sharedModel *basicpitch.Model
)

// getModel returns the one basic-pitch handle for this process.
func getModel() *basicpitch.Model {
	modelOnce.Do(func() {
		sharedModel = basicpitch.NewModel(constants.GetBasicPitchBin(), constants.GetBasicPitchModel())
	})
	return sharedModel
}

// newEngine uses basic-pitch unless a YAML list of notes is given, in which
// case every transcription returns those notes.
func newEngine(notesPath string) (engine.Engine, error) {
	if notesPath == "" {
		return basicpitch.New(getModel(), nil), nil
	}
	f := util.OpenFileOrPanic(notesPath)
	defer f.Close()
	var notes []model.RawNoteEvent
	if err := yaml.NewDecoder(f).Decode(&notes); err != nil {
		return nil, errors.Wrapf(err, "could not decode notes file %v", notesPath)
	}
	return engine.Static{Notes: notes}, nil
}

// loadParams reads a YAML params file over the defaults.
func loadParams(path string) (model.Params, error) {
	p := model.DefaultParams()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrap(err, "could not read params file")
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, errors.Wrapf(err, "could not decode params file %v", path)
	}
	return p, nil
}

func readAudio(path string) (model.AudioData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.AudioData{}, errors.Wrap(err, "could not read audio")
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = constants.DefaultAudioFormat
	}
	return model.AudioData{Format: format, SampleRate: constants.DefaultSampleRate, Data: data}, nil
}

func openStore() (store.Store, error) {
	switch constants.GetStoreKind() {
	case "file":
		return store.NewFileStore(constants.GetSongDir(), 500*time.Millisecond)
	case "sqlite":
		return store.NewSQLiteStore(constants.GetSQLitePath())
	}
	return nil, errors.Errorf("unknown store %q", constants.GetStoreKind())
}

// openHistory returns nil when no history table is configured.
func openHistory() (*db.History, error) {
	table := constants.GetHistoryTable()
	if table == "" {
		return nil, nil
	}
	return db.Connect(constants.GetDynamoEndpoint(), table)
}

func newRecord(songID string, req transcribe.Request, res *transcribe.Result, runErr error) *db.Record {
	r := &db.Record{
		SongID:        songID,
		SourceTrackID: req.Selection.TrackID,
		SourceClipID:  req.Selection.ClipID,
		TrackID:       res.TrackID,
		ClipID:        res.ClipID,
		Status:        string(res.Status),
		State:         res.State.String(),
		NotesInserted: res.NotesInserted,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

func recordHistory(h *db.History, r *db.Record) {
	if h == nil {
		return
	}
	if err := h.Put(r); err != nil {
		log.Printf("could not record transcription history: %v", err)
	}
}
