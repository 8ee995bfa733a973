package model

type TextData struct {
	BaseData
	Content string `json:"content"`
	Output  string `json:"output,omitempty"`
}

func (*TextData) NodeType() NodeType { return NODE_TYPE_TEXT }

type PDFData struct {
	BaseData
	FileName   string `json:"fileName,omitempty"`
	URL        string `json:"url,omitempty"`
	ParsedText string `json:"parsedText,omitempty"`
	PageCount  int    `json:"pageCount,omitempty"`
}

func (*PDFData) NodeType() NodeType { return NODE_TYPE_PDF }

type VoiceData struct {
	BaseData
	AudioURL        string  `json:"audioUrl,omitempty"`
	Transcript      string  `json:"transcript,omitempty"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

func (*VoiceData) NodeType() NodeType { return NODE_TYPE_VOICE }

type YouTubeMode string

const YOUTUBE_MODE_SINGLE YouTubeMode = "single"
const YOUTUBE_MODE_CHANNEL YouTubeMode = "channel"

type YouTubeChannel struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Handle          string `json:"handle,omitempty"`
	Description     string `json:"description,omitempty"`
	SubscriberCount int64  `json:"subscriberCount,omitempty"`
	VideoCount      int64  `json:"videoCount,omitempty"`
}

type YouTubeVideo struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Method     string `json:"method,omitempty"`
	Error      string `json:"error,omitempty"`
}

type YouTubeData struct {
	BaseData
	Mode           YouTubeMode     `json:"mode,omitempty"`
	URL            string          `json:"url,omitempty"`
	VideoID        string          `json:"videoId,omitempty"`
	Title          string          `json:"title,omitempty"`
	Transcript     string          `json:"transcript,omitempty"`
	Method         string          `json:"method,omitempty"`
	Language       string          `json:"language,omitempty"`
	Channel        *YouTubeChannel `json:"channel,omitempty"`
	SelectedVideos []YouTubeVideo  `json:"selectedVideos,omitempty"`
}

func (*YouTubeData) NodeType() NodeType { return NODE_TYPE_YOUTUBE }

func (d *YouTubeData) IsChannel() bool {
	return d.Mode == YOUTUBE_MODE_CHANNEL
}

// SocialPost is the part of a social payload filled by a post fetch.
type SocialPost struct {
	URL                  string   `json:"url,omitempty"`
	Author               string   `json:"author,omitempty"`
	Caption              string   `json:"caption,omitempty"`
	ThumbnailURL         string   `json:"thumbnailUrl,omitempty"`
	VideoURL             string   `json:"videoUrl,omitempty"`
	ImageURLs            []string `json:"imageUrls,omitempty"`
	IsVideo              bool     `json:"isVideo,omitempty"`
	Transcript           string   `json:"transcript,omitempty"`
	Summary              string   `json:"summary,omitempty"`
	OCRText              string   `json:"ocrText,omitempty"`
	FullAnalysis         string   `json:"fullAnalysis,omitempty"`
	StorageStatus        string   `json:"storageStatus,omitempty"`
	OriginalVideoURL     string   `json:"originalVideoUrl,omitempty"`
	OriginalThumbnailURL string   `json:"originalThumbnailUrl,omitempty"`
	FetchMethod          string   `json:"fetchMethod,omitempty"`
}

type InstagramData struct {
	BaseData
	SocialPost
}

func (*InstagramData) NodeType() NodeType { return NODE_TYPE_INSTAGRAM }

type LinkedInData struct {
	BaseData
	SocialPost
}

func (*LinkedInData) NodeType() NodeType { return NODE_TYPE_LINKEDIN }

type ImageData struct {
	BaseData
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

func (*ImageData) NodeType() NodeType { return NODE_TYPE_IMAGE }

type WebpageData struct {
	BaseData
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

func (*WebpageData) NodeType() NodeType { return NODE_TYPE_WEBPAGE }

type MindMapNode struct {
	Text     string         `json:"text"`
	Children []*MindMapNode `json:"children,omitempty"`
}

type MindMapData struct {
	BaseData
	Title string       `json:"title,omitempty"`
	Root  *MindMapNode `json:"root,omitempty"`
}

func (*MindMapData) NodeType() NodeType { return NODE_TYPE_MINDMAP }

type TemplateData struct {
	BaseData
	Name     string `json:"name,omitempty"`
	Template string `json:"template,omitempty"`
	Output   string `json:"output,omitempty"`
}

func (*TemplateData) NodeType() NodeType { return NODE_TYPE_TEMPLATE }

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatData struct {
	BaseData
	Model    string        `json:"model,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
	// Pending is the user message to answer on the next execution.
	Pending string `json:"pending,omitempty"`
}

func (*ChatData) NodeType() NodeType { return NODE_TYPE_CHAT }

type GroupData struct {
	BaseData
	Title string `json:"title,omitempty"`
}

func (*GroupData) NodeType() NodeType { return NODE_TYPE_GROUP }

type PromptData struct {
	BaseData
	Prompt string `json:"prompt,omitempty"`
	Output string `json:"output,omitempty"`
}

func (*PromptData) NodeType() NodeType { return NODE_TYPE_PROMPT }

type ImageGenerationData struct {
	BaseData
	Prompt   string `json:"prompt,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

func (*ImageGenerationData) NodeType() NodeType { return NODE_TYPE_IMAGE_GENERATION }
