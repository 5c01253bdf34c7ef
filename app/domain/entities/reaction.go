package entities

// FrameEvent tells the page which image to show.
type FrameEvent struct {
	Tier   Tier   `json:"tier"`
	Index  int    `json:"index"`
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Custom bool   `json:"custom"`
}

// SoundEvent tells the page which sound to play.
type SoundEvent struct {
	Tier       Tier    `json:"tier"`
	Src        string  `json:"src"`
	Volume     float64 `json:"volume"`
	Generated  bool    `json:"generated"`
	Frequency  float64 `json:"frequency,omitempty"`
	DurationMs int     `json:"duration_ms,omitempty"`
}
