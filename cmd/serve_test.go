package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jsphweid/pitchtrack/db"
	"github.com/jsphweid/pitchtrack/engine"
	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/jsphweid/pitchtrack/store"
	"github.com/jsphweid/pitchtrack/transcribe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"
)

func newTestServer(t *testing.T, e engine.Engine) (*Server, *store.FileStore) {
	fs, err := store.NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	s := song.New("demo", 480, 120)
	s.Tracks = []*song.Track{{ID: "vox", Type: song.AudioTrack, Clips: []*song.Clip{{ID: "take1", StartTick: 0, EndTick: 1920}}}}
	require.NoError(t, fs.Save(s))

	o := transcribe.New(e, log.New(io.Discard, "", 0))
	return NewServer(store.NewLibrary(fs), o, nil), fs
}

func transcribeBody(t *testing.T, trackID string, clipID string, params *model.Params) io.Reader {
	data, err := json.Marshal(model.TranscribeRequestBody{
		TrackID: trackID,
		ClipID:  clipID,
		Params:  params,
		Audio:   model.AudioData{Format: "ogg", Data: []byte("OggS")},
	})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func do(h http.Handler, req *http.Request) *http.Response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func TestHandleTranscribe(t *testing.T) {
	e := engine.Static{Notes: []model.RawNoteEvent{{StartSeconds: 0.5, EndSeconds: 1, Pitch: 60, Velocity: 100}}}
	server, fs := newTestServer(t, e)
	h := server.Router()

	resp := do(h, httptest.NewRequest(http.MethodPost, "/songs/demo/transcriptions", transcribeBody(t, "vox", "take1", nil)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.TranscribeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert := assert.New(t)
	assert.Equal("done", body.Status)
	assert.Equal(1, body.NotesInserted)

	saved, err := fs.Load("demo")
	require.NoError(t, err)
	_, clip, err := saved.Clip(body.TrackID, body.ClipID)
	require.NoError(t, err)
	assert.Equal(int64(480), clip.Notes[0].StartTick)
	assert.Equal(int64(960), clip.Notes[0].EndTick)

	midiResp := do(h, httptest.NewRequest(http.MethodGet, "/songs/demo/tracks/"+body.TrackID+"/clips/"+body.ClipID+"/midi", nil))
	require.Equal(t, http.StatusOK, midiResp.StatusCode)
	_, err = smf.ReadFrom(midiResp.Body)
	assert.NoError(err)
}

func TestHandleTranscribeErrors(t *testing.T) {
	bad := model.DefaultParams()
	bad.OnsetThreshold = 2

	cases := []struct {
		name   string
		path   string
		body   io.Reader
		status int
	}{
		{"missing song", "/songs/nope/transcriptions", transcribeBody(t, "vox", "take1", nil), http.StatusNotFound},
		{"missing track", "/songs/demo/transcriptions", transcribeBody(t, "nope", "take1", nil), http.StatusNotFound},
		{"missing clip", "/songs/demo/transcriptions", transcribeBody(t, "vox", "nope", nil), http.StatusNotFound},
		{"bad params", "/songs/demo/transcriptions", transcribeBody(t, "vox", "take1", &bad), http.StatusBadRequest},
		{"bad json", "/songs/demo/transcriptions", bytes.NewReader([]byte("{")), http.StatusBadRequest},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			server, _ := newTestServer(t, engine.Static{})
			resp := do(server.Router(), httptest.NewRequest(http.MethodPost, c.path, c.body))
			assert.Equal(t, c.status, resp.StatusCode)

			var body model.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandleTranscribeReportsPartialFailure(t *testing.T) {
	e := engine.Static{Notes: []model.RawNoteEvent{{StartSeconds: 0, EndSeconds: 1, Pitch: 300, Velocity: 100}}}
	server, _ := newTestServer(t, e)

	resp := do(server.Router(), httptest.NewRequest(http.MethodPost, "/songs/demo/transcriptions", transcribeBody(t, "vox", "take1", nil)))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body model.TranscribeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert := assert.New(t)
	assert.Equal("partial", body.Status)
	assert.Equal("inserting", body.State)
	assert.NotEmpty(body.TrackID)
	assert.NotEmpty(body.Error)
}

func TestHandleGetSong(t *testing.T) {
	server, _ := newTestServer(t, engine.Static{})
	resp := do(server.Router(), httptest.NewRequest(http.MethodGet, "/songs/demo", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "demo", got["id"])
}

func TestHandleGetTranscriptionWithoutHistory(t *testing.T) {
	server, _ := newTestServer(t, engine.Static{})
	resp := do(server.Router(), httptest.NewRequest(http.MethodGet, "/transcriptions/abc", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewRecord(t *testing.T) {
	req := transcribe.Request{Selection: model.Selection{TrackID: "vox", ClipID: "take1"}}
	res := &transcribe.Result{Status: transcribe.StatusDone, State: transcribe.Done, TrackID: "t", ClipID: "c", NotesInserted: 3}

	assert.Equal(t, &db.Record{
		SongID:        "demo",
		SourceTrackID: "vox",
		SourceClipID:  "take1",
		TrackID:       "t",
		ClipID:        "c",
		Status:        "done",
		State:         "done",
		NotesInserted: 3,
	}, newRecord("demo", req, res, nil))
}

func TestHandleTranscribeFillsMissingParams(t *testing.T) {
	var got model.TranscriptionRequest
	e := engine.Func(func(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error) {
		got = req
		return nil, nil
	})
	server, _ := newTestServer(t, e)

	body := `{"trackId":"vox","clipId":"take1","params":{"onsetThreshold":0.4},"audio":{"format":"ogg","data":"T2dnUw=="}}`
	resp := do(server.Router(), httptest.NewRequest(http.MethodPost, "/songs/demo/transcriptions", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defaults := model.DefaultParams()
	assert := assert.New(t)
	assert.Equal(0.4, got.OnsetThreshold)
	assert.Equal(defaults.FrameThreshold, got.FrameThreshold)
	assert.Equal(defaults.MinNoteLenMs, got.MinNoteLenMs)
	assert.Equal(defaults.MinPitch, got.MinPitch)
	assert.Equal(defaults.MaxPitch, got.MaxPitch)
}

func TestHandleTranscribeRejectsPathInFormat(t *testing.T) {
	called := false
	e := engine.Func(func(ctx context.Context, req model.TranscriptionRequest) ([]model.RawNoteEvent, error) {
		called = true
		return nil, nil
	})
	server, _ := newTestServer(t, e)

	body := `{"trackId":"vox","clipId":"take1","audio":{"format":"x/../../../../tmp/evil","data":"T2dnUw=="}}`
	resp := do(server.Router(), httptest.NewRequest(http.MethodPost, "/songs/demo/transcriptions", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, called)
}

func TestHandleListSongs(t *testing.T) {
	server, fs := newTestServer(t, engine.Static{})
	require.NoError(t, fs.Save(song.New("another", 480, 90)))

	resp := do(server.Router(), httptest.NewRequest(http.MethodGet, "/songs", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body model.SongListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"another", "demo"}, body.Songs)
}

func TestHandleDeleteTrack(t *testing.T) {
	server, fs := newTestServer(t, engine.Static{})
	h := server.Router()

	resp := do(h, httptest.NewRequest(http.MethodDelete, "/songs/demo/tracks/vox", nil))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	saved, err := fs.Load("demo")
	require.NoError(t, err)
	assert.Equal(t, 0, saved.NumTracks())

	resp = do(h, httptest.NewRequest(http.MethodDelete, "/songs/demo/tracks/vox", nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
