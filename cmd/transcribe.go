package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jsphweid/pitchtrack/model"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/jsphweid/pitchtrack/transcribe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type transcribeFlags struct {
	trackID    string
	clipID     string
	audioPath  string
	paramsPath string
	notesPath  string
	outPath    string

	onset      float64
	frame      float64
	minNoteLen int
	minPitch   int
	maxPitch   int
}

var tf transcribeFlags

func init() {
	rootCmd.AddCommand(transcribeCmd)

	f := transcribeCmd.Flags()
	f.StringVar(&tf.trackID, "track", "", "id of the track holding the audio clip")
	f.StringVar(&tf.clipID, "clip", "", "id of the audio clip to transcribe")
	f.StringVar(&tf.audioPath, "audio", "", "audio file to transcribe (default: the clip's audioFile)")
	f.StringVar(&tf.paramsPath, "params", "", "YAML file with transcription params")
	f.StringVar(&tf.notesPath, "notes", "", "YAML list of notes to use instead of running basic-pitch")
	f.StringVarP(&tf.outPath, "out", "o", "", "where to write the updated song (default: overwrite input)")

	defaults := model.DefaultParams()
	f.Float64Var(&tf.onset, "onset-threshold", defaults.OnsetThreshold, "note segmentation granularity, smaller detects more onsets")
	f.Float64Var(&tf.frame, "frame-threshold", defaults.FrameThreshold, "note creation granularity, smaller creates more notes")
	f.IntVar(&tf.minNoteLen, "min-note-length", defaults.MinNoteLenMs, "minimum note length in milliseconds")
	f.IntVar(&tf.minPitch, "min-pitch", defaults.MinPitch, "lowest pitch to detect")
	f.IntVar(&tf.maxPitch, "max-pitch", defaults.MaxPitch, "highest pitch to detect")

	transcribeCmd.MarkFlagRequired("track")
	transcribeCmd.MarkFlagRequired("clip")
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <song.yml>",
	Short: "Transcribes an audio clip into a new midi track",
	Long:  `Transcribes an audio clip into a new midi track placed right above the clip's track.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(cmd, args[0])
	},
}

// params starts from the params file and applies any flags that were set.
func (f transcribeFlags) params(cmd *cobra.Command) (model.Params, error) {
	p, err := loadParams(f.paramsPath)
	if err != nil {
		return p, err
	}
	flags := cmd.Flags()
	if flags.Changed("onset-threshold") {
		p.OnsetThreshold = f.onset
	}
	if flags.Changed("frame-threshold") {
		p.FrameThreshold = f.frame
	}
	if flags.Changed("min-note-length") {
		p.MinNoteLenMs = f.minNoteLen
	}
	if flags.Changed("min-pitch") {
		p.MinPitch = f.minPitch
	}
	if flags.Changed("max-pitch") {
		p.MaxPitch = f.maxPitch
	}
	return p, nil
}

func audioPathFor(s *song.Song, songPath string) (string, error) {
	if tf.audioPath != "" {
		return tf.audioPath, nil
	}
	_, clip, err := s.Clip(tf.trackID, tf.clipID)
	if err != nil {
		return "", err
	}
	if clip.AudioFile == "" {
		return "", errors.Errorf("clip %v has no audioFile, pass --audio", clip.ID)
	}
	if filepath.IsAbs(clip.AudioFile) {
		return clip.AudioFile, nil
	}
	return filepath.Join(filepath.Dir(songPath), clip.AudioFile), nil
}

func runTranscribe(cmd *cobra.Command, songPath string) error {
	s, err := song.ReadFile(songPath)
	if err != nil {
		return err
	}
	params, err := tf.params(cmd)
	if err != nil {
		return err
	}
	audioPath, err := audioPathFor(s, songPath)
	if err != nil {
		return err
	}
	audio, err := readAudio(audioPath)
	if err != nil {
		return err
	}
	e, err := newEngine(tf.notesPath)
	if err != nil {
		return err
	}
	history, err := openHistory()
	if err != nil {
		return err
	}

	req := transcribe.Request{
		Selection: model.Selection{TrackID: tf.trackID, ClipID: tf.clipID},
		Audio:     audio,
		Params:    params,
	}
	res, runErr := transcribe.New(e, nil).Run(context.Background(), s, req)
	recordHistory(history, newRecord(s.ID, req, res, runErr))

	if res.Status == transcribe.StatusAborted {
		return runErr
	}

	// partial results are saved too so the user can see what was created
	outPath := tf.outPath
	if outPath == "" {
		outPath = songPath
	}
	if res.TrackID != "" {
		if err := s.WriteFile(outPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %v\n", outPath)
	}
	fmt.Printf("status: %v, track: %v, clip: %v, notes: %v\n", res.Status, res.TrackID, res.ClipID, res.NotesInserted)
	return runErr
}
