package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/jsphweid/pitchtrack/constants"
	"github.com/jsphweid/pitchtrack/db"
	"github.com/jsphweid/pitchtrack/midi"
	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/jsphweid/pitchtrack/store"
	"github.com/jsphweid/pitchtrack/transcribe"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

var serveNotesPath string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveNotesPath, "notes", "", "YAML list of notes to use instead of running basic-pitch")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serves",
	Long:  `Serves the transcription API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

type Server struct {
	library      *store.Library
	orchestrator *transcribe.Orchestrator
	history      *db.History
}

func NewServer(lib *store.Library, o *transcribe.Orchestrator, h *db.History) *Server {
	return &Server{library: lib, orchestrator: o, history: h}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, model.ErrorResponse{Error: err.Error()})
}

func (s *Server) getSong(w http.ResponseWriter, r *http.Request) (*song.Song, bool) {
	sng, err := s.library.Get(mux.Vars(r)["songID"])
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return sng, true
}

func (s *Server) HandleListSongs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.library.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, model.SongListResponse{Songs: ids})
}

func (s *Server) HandleGetSong(w http.ResponseWriter, r *http.Request) {
	sng, ok := s.getSong(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := sng.EncodeJSON(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (s *Server) HandleExportClip(w http.ResponseWriter, r *http.Request) {
	sng, ok := s.getSong(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	_, clip, err := sng.Clip(vars["trackID"], vars["clipID"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var buf bytes.Buffer
	err = sng.View(func() error {
		return midi.WriteClip(&buf, sng.PPQ, sng.Tempos, clip, r.URL.Query().Get("relative") == "true")
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Write(buf.Bytes())
}

// HandleDeleteTrack removes a track, typically a transcription that came out
// wrong or was left behind by a partial run.
func (s *Server) HandleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	sng, ok := s.getSong(w, r)
	if !ok {
		return
	}
	trackID := mux.Vars(r)["trackID"]
	removed := false
	sng.Edit(func(e *song.Editor) error {
		removed = e.RemoveTrack(trackID)
		return nil
	})
	if !removed {
		writeError(w, http.StatusNotFound, errors.Wrapf(song.ErrTrackNotFound, "track %v", trackID))
		return
	}
	if err := s.library.Save(sng); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func abortStatus(err error) int {
	switch {
	case errors.Is(err, song.ErrTrackNotFound), errors.Is(err, song.ErrClipNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	sng, ok := s.getSong(w, r)
	if !ok {
		return
	}

	// fields missing from params keep their defaults
	params := model.DefaultParams()
	input := model.TranscribeRequestBody{Params: &params}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "Could not unmarshal request body"))
		return
	}
	if input.Params != nil {
		params = *input.Params
	}
	req := transcribe.Request{
		Selection: model.Selection{TrackID: input.TrackID, ClipID: input.ClipID},
		Audio:     input.Audio,
		Params:    params,
	}

	res, err := s.orchestrator.Run(r.Context(), sng, req)
	record := newRecord(sng.ID, req, res, err)
	recordHistory(s.history, record)

	if res.Status == transcribe.StatusAborted {
		writeError(w, abortStatus(err), err)
		return
	}
	if res.TrackID != "" {
		if saveErr := s.library.Save(sng); saveErr != nil {
			log.Printf("Could not save song %v: %v", sng.ID, saveErr)
		}
	}

	body := model.TranscribeResponse{
		ID:            record.PK,
		Status:        string(res.Status),
		State:         res.State.String(),
		TrackID:       res.TrackID,
		ClipID:        res.ClipID,
		NotesInserted: res.NotesInserted,
	}
	status := http.StatusOK
	if err != nil {
		body.Error = err.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

func (s *Server) HandleGetTranscription(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("transcription history is disabled"))
		return
	}
	id := mux.Vars(r)["id"]
	rec, err := s.history.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no transcription %v", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) Router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/songs", s.HandleListSongs).Methods("GET")
	router.HandleFunc("/songs/{songID}", s.HandleGetSong).Methods("GET")
	router.HandleFunc("/songs/{songID}/tracks/{trackID}", s.HandleDeleteTrack).Methods("DELETE")
	router.HandleFunc("/songs/{songID}/tracks/{trackID}/clips/{clipID}/midi", s.HandleExportClip).Methods("GET")
	router.HandleFunc("/songs/{songID}/transcriptions", s.HandleTranscribe).Methods("POST")
	router.HandleFunc("/transcriptions/{id}", s.HandleGetTranscription).Methods("GET")
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}).Handler(router)
}

func serve() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	lib := store.NewLibrary(st)
	defer lib.Close()

	e, err := newEngine(serveNotesPath)
	if err != nil {
		return err
	}
	history, err := openHistory()
	if err != nil {
		return err
	}

	server := NewServer(lib, transcribe.New(e, nil), history)
	addr := constants.GetAddr()
	httpServer := &http.Server{Addr: addr, Handler: server.Router()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	log.Printf("Listening on %v", addr)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
