package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pitchtrack",
	Short: "Transcribes audio clips into note tracks",
	Long: `Transcribes audio clips into note tracks. Detected notes are placed on the
song's tick timeline using the tempo at the start of the clip.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
