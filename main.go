package main

import "github.com/jsphweid/pitchtrack/cmd"

func main() {
	cmd.Execute()
}
