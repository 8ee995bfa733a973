package model

// ContextMetadata records where a context item came from.
type ContextMetadata struct {
	NodeID      string `json:"nodeId"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	GroupPath   string `json:"groupPath,omitempty"`
}

type TextContextItem struct {
	ContextMetadata
	Content string `json:"content"`
}

type TranscriptItem struct {
	ContextMetadata
	VideoID    string `json:"videoId,omitempty"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	Transcript string `json:"transcript"`
	Method     string `json:"method,omitempty"`
}

type VoiceItem struct {
	ContextMetadata
	Transcript      string  `json:"transcript"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

type PDFItem struct {
	ContextMetadata
	FileName string `json:"fileName,omitempty"`
	Content  string `json:"content"`
}

type ImageItem struct {
	ContextMetadata
	URL      string `json:"url,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

type WebpageItem struct {
	ContextMetadata
	URL     string `json:"url,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

type SocialItem struct {
	ContextMetadata
	URL     string `json:"url"`
	Author  string `json:"author,omitempty"`
	IsVideo bool   `json:"isVideo,omitempty"`
	Content string `json:"content"`
}

type MindMapItem struct {
	ContextMetadata
	Title   string `json:"title,omitempty"`
	Outline string `json:"outline"`
}

type TemplateItem struct {
	ContextMetadata
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type GeneratedImageItem struct {
	ContextMetadata
	Prompt string `json:"prompt,omitempty"`
	URL    string `json:"url"`
}

// ChatContext is built fresh for every AI call from the nodes connected
// to the target node. It is never persisted.
type ChatContext struct {
	TextContext        []TextContextItem    `json:"textContext"`
	YouTubeTranscripts []TranscriptItem     `json:"youtubeTranscripts"`
	VoiceTranscripts   []VoiceItem          `json:"voiceTranscripts"`
	PDFDocuments       []PDFItem            `json:"pdfDocuments"`
	Images             []ImageItem          `json:"images"`
	Webpages           []WebpageItem        `json:"webpages"`
	InstagramReels     []SocialItem         `json:"instagramReels"`
	LinkedInPosts      []SocialItem         `json:"linkedInPosts"`
	MindMaps           []MindMapItem        `json:"mindMaps"`
	Templates          []TemplateItem       `json:"templates"`
	GeneratedImages    []GeneratedImageItem `json:"generatedImages"`
}

func (c *ChatContext) Empty() bool {
	return len(c.TextContext) == 0 &&
		len(c.YouTubeTranscripts) == 0 &&
		len(c.VoiceTranscripts) == 0 &&
		len(c.PDFDocuments) == 0 &&
		len(c.Images) == 0 &&
		len(c.Webpages) == 0 &&
		len(c.InstagramReels) == 0 &&
		len(c.LinkedInPosts) == 0 &&
		len(c.MindMaps) == 0 &&
		len(c.Templates) == 0 &&
		len(c.GeneratedImages) == 0
}
