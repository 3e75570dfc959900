package model

type TranscribeRequestBody struct {
	TrackID string    `json:"trackId"`
	ClipID  string    `json:"clipId"`
	Params  *Params   `json:"params,omitempty"`
	Audio   AudioData `json:"audio"`
}

type TranscribeResponse struct {
	ID            string `json:"id,omitempty"`
	Status        string `json:"status"`
	State         string `json:"state"`
	TrackID       string `json:"trackId,omitempty"`
	ClipID        string `json:"clipId,omitempty"`
	NotesInserted int    `json:"notesInserted"`
	Error         string `json:"error,omitempty"`
}

type SongListResponse struct {
	Songs []string `json:"songs"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
