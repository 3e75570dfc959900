package cmd

import (
	"os"

	"github.com/jsphweid/pitchtrack/midi"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	exportTrackID  string
	exportClipID   string
	exportOut      string
	exportRelative bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	f := exportCmd.Flags()
	f.StringVar(&exportTrackID, "track", "", "id of the midi track")
	f.StringVar(&exportClipID, "clip", "", "id of the midi clip")
	f.StringVarP(&exportOut, "out", "o", "clip.mid", "midi file to write")
	f.BoolVar(&exportRelative, "relative", false, "start the file at the clip start instead of song tick 0")
	exportCmd.MarkFlagRequired("track")
	exportCmd.MarkFlagRequired("clip")
}

var exportCmd = &cobra.Command{
	Use:   "export <song.yml>",
	Short: "Exports a midi clip as a standard midi file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := song.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, clip, err := s.Clip(exportTrackID, exportClipID)
		if err != nil {
			return err
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return errors.Wrap(err, "could not create midi file")
		}
		defer f.Close()
		return midi.WriteClip(f, s.PPQ, s.Tempos, clip, exportRelative)
	},
}
