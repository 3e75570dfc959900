package constants

import "os"

func getEnvOr(key string, fallback string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return fallback
}

func GetSongDir() string {
	return getEnvOr("PITCHTRACK_SONG_DIR", "./songs")
}

// GetStoreKind is either "file" or "sqlite".
func GetStoreKind() string {
	return getEnvOr("PITCHTRACK_STORE", "file")
}

func GetSQLitePath() string {
	return getEnvOr("PITCHTRACK_SQLITE_PATH", "./songs/pitchtrack.db")
}

func GetBasicPitchBin() string {
	return getEnvOr("BASIC_PITCH_BIN", "basic-pitch")
}

// GetBasicPitchModel returns an explicit model path, or "" to let basic-pitch
// use its bundled ICASSP 2022 model.
func GetBasicPitchModel() string {
	return os.Getenv("BASIC_PITCH_MODEL")
}

// GetHistoryTable returns "" when transcription history is disabled.
func GetHistoryTable() string {
	return os.Getenv("PITCHTRACK_HISTORY_TABLE")
}

func GetDynamoEndpoint() string {
	return getEnvOr("DYNAMODB_ENDPOINT", "http://localhost:8000")
}

func GetAddr() string {
	return getEnvOr("PITCHTRACK_ADDR", ":8080")
}

// ticks per quarter note for newly created songs
const DefaultPPQ = 480

const DefaultBPM = 120.0

// Parameter bounds and defaults exposed by the transcription operation.
const (
	MinThreshold = 0.05
	MaxThreshold = 0.95

	DefaultOnsetThreshold = 0.5
	DefaultFrameThreshold = 0.3

	MinNoteLengthMs     = 3
	MaxNoteLengthMs     = 50
	DefaultNoteLengthMs = 11

	MinAllowedPitch = 28
	MaxAllowedPitch = 102
)

// audio clips are handed to the engine pre-converted to this format
const (
	DefaultAudioFormat = "ogg"
	DefaultSampleRate  = 44100
)
