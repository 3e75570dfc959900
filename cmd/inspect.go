package cmd

import (
	"fmt"

	"github.com/jsphweid/pitchtrack/pitch"
	"github.com/jsphweid/pitchtrack/song"
	"github.com/spf13/cobra"
)

var inspectNotes bool

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectNotes, "notes", false, "print every note")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <song.yml>",
	Short: "Inspects a song",
	Long:  `Prints the tempo map, tracks and clips of a song.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := song.ReadFile(args[0])
		if err != nil {
			return err
		}
		inspect(s)
		return nil
	},
}

func inspect(s *song.Song) {
	fmt.Printf("song: %v (ppq %v)\n", s.ID, s.PPQ)
	for _, t := range s.Tempos {
		fmt.Printf("tempo: %v bpm at tick %v\n", t.BPM, t.Tick)
	}
	for i, t := range s.Tracks {
		fmt.Printf("track %v: %v [%v] %v\n", i, t.ID, t.Type, t.Name)
		for _, c := range t.Clips {
			seconds, _ := s.TickToSeconds(c.StartTick)
			fmt.Printf("  clip %v: ticks %v-%v (starts at %.3fs), %v notes\n", c.ID, c.StartTick, c.EndTick, seconds, len(c.Notes))
			if !inspectNotes {
				continue
			}
			for _, n := range c.Notes {
				fmt.Printf("    %-4v vel %-3v ticks %v-%v\n", pitch.Name(n.Pitch), n.Velocity, n.StartTick, n.EndTick)
			}
		}
	}
}
