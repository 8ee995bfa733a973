package model

const METHOD_CAPTIONS = "captions"
const METHOD_GEMINI_VIDEO = "gemini-video-analysis"
const METHOD_YTDL_DEEPGRAM = "ytdl-deepgram"
const METHOD_YTDLP_DEEPGRAM = "yt-dlp-deepgram"

// TranscriptionResult is what every YouTube fetch tier produces.
type TranscriptionResult struct {
	Transcript string  `json:"transcript"`
	Method     string  `json:"method"`
	Language   string  `json:"language,omitempty"`
	VideoID    string  `json:"videoId"`
	Cached     bool    `json:"cached"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	Confidence float64 `json:"confidence,omitempty"`
}
