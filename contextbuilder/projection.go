package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/mohitkumar/canvasflow/model"
)

func nonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

func project(ctx *model.ChatContext, node *model.WorkflowNode, meta model.ContextMetadata) {
	switch d := node.Data.(type) {
	case *model.TextData:
		content := d.Content
		if nonEmpty(d.Output) {
			content = d.Output
		}
		if nonEmpty(content) {
			ctx.TextContext = append(ctx.TextContext, model.TextContextItem{ContextMetadata: meta, Content: content})
		}
	case *model.YouTubeData:
		projectYouTube(ctx, d, meta)
	case *model.InstagramData:
		if item, ok := socialItem(&d.SocialPost, meta); ok {
			ctx.InstagramReels = append(ctx.InstagramReels, item)
		}
	case *model.LinkedInData:
		if item, ok := socialItem(&d.SocialPost, meta); ok {
			ctx.LinkedInPosts = append(ctx.LinkedInPosts, item)
		}
	case *model.VoiceData:
		if nonEmpty(d.Transcript) {
			ctx.VoiceTranscripts = append(ctx.VoiceTranscripts, model.VoiceItem{ContextMetadata: meta, Transcript: d.Transcript, DurationSeconds: d.DurationSeconds})
		}
	case *model.PDFData:
		if nonEmpty(d.ParsedText) {
			ctx.PDFDocuments = append(ctx.PDFDocuments, model.PDFItem{ContextMetadata: meta, FileName: d.FileName, Content: d.ParsedText})
		}
	case *model.ImageData:
		if nonEmpty(d.URL) || nonEmpty(d.Analysis) {
			ctx.Images = append(ctx.Images, model.ImageItem{ContextMetadata: meta, URL: d.URL, Analysis: d.Analysis})
		}
	case *model.ImageGenerationData:
		if nonEmpty(d.ImageURL) {
			ctx.GeneratedImages = append(ctx.GeneratedImages, model.GeneratedImageItem{ContextMetadata: meta, Prompt: d.Prompt, URL: d.ImageURL})
		}
	case *model.WebpageData:
		if nonEmpty(d.Content) {
			ctx.Webpages = append(ctx.Webpages, model.WebpageItem{ContextMetadata: meta, URL: d.URL, Title: d.Title, Content: d.Content})
		}
	case *model.MindMapData:
		if outline := RenderOutline(d.Root); outline != "" {
			title := d.Title
			if title == "" {
				title = d.Root.Text
			}
			ctx.MindMaps = append(ctx.MindMaps, model.MindMapItem{ContextMetadata: meta, Title: title, Outline: outline})
		}
	case *model.TemplateData:
		if nonEmpty(d.Output) {
			ctx.Templates = append(ctx.Templates, model.TemplateItem{ContextMetadata: meta, Name: d.Name, Content: d.Output})
		}
	case *model.ChatData:
		if history := chatHistory(d.Messages); history != "" {
			ctx.TextContext = append(ctx.TextContext, model.TextContextItem{ContextMetadata: meta, Content: history})
		}
	case *model.PromptData:
		if nonEmpty(d.Output) {
			ctx.TextContext = append(ctx.TextContext, model.TextContextItem{ContextMetadata: meta, Content: d.Output})
		}
	case *model.GroupData:
	}
}

func projectYouTube(ctx *model.ChatContext, d *model.YouTubeData, meta model.ContextMetadata) {
	if !d.IsChannel() {
		if nonEmpty(d.Transcript) {
			ctx.YouTubeTranscripts = append(ctx.YouTubeTranscripts, model.TranscriptItem{
				ContextMetadata: meta,
				VideoID:         d.VideoID,
				Title:           d.Title,
				URL:             d.URL,
				Transcript:      d.Transcript,
				Method:          d.Method,
			})
		}
		return
	}
	if d.Channel != nil {
		ctx.TextContext = append(ctx.TextContext, model.TextContextItem{ContextMetadata: meta, Content: channelSummary(d.Channel, len(d.SelectedVideos))})
	}
	for _, v := range d.SelectedVideos {
		if !nonEmpty(v.Transcript) {
			continue
		}
		ctx.YouTubeTranscripts = append(ctx.YouTubeTranscripts, model.TranscriptItem{
			ContextMetadata: meta,
			VideoID:         v.ID,
			Title:           v.Title,
			URL:             v.URL,
			Transcript:      v.Transcript,
			Method:          v.Method,
		})
	}
}

func channelSummary(c *model.YouTubeChannel, selected int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "YouTube channel: %s", c.Name)
	if c.Handle != "" {
		fmt.Fprintf(&b, " (%s)", c.Handle)
	}
	b.WriteString("\n")
	if c.SubscriberCount > 0 {
		fmt.Fprintf(&b, "Subscribers: %d\n", c.SubscriberCount)
	}
	if c.VideoCount > 0 {
		fmt.Fprintf(&b, "Videos on channel: %d\n", c.VideoCount)
	}
	fmt.Fprintf(&b, "Videos selected: %d\n", selected)
	if c.Description != "" {
		fmt.Fprintf(&b, "About: %s\n", c.Description)
	}
	return strings.TrimSpace(b.String())
}

// socialItem prefers a stored full analysis over the individual fields. A
// post without a URL contributes nothing.
func socialItem(p *model.SocialPost, meta model.ContextMetadata) (model.SocialItem, bool) {
	if !nonEmpty(p.URL) {
		return model.SocialItem{}, false
	}
	content := p.FullAnalysis
	if !nonEmpty(content) {
		var parts []string
		for _, f := range []struct{ name, value string }{
			{"Caption", p.Caption},
			{"Summary", p.Summary},
			{"Transcript", p.Transcript},
			{"Text in media", p.OCRText},
		} {
			if nonEmpty(f.value) {
				parts = append(parts, f.name+": "+strings.TrimSpace(f.value))
			}
		}
		content = strings.Join(parts, "\n\n")
	}
	return model.SocialItem{ContextMetadata: meta, URL: p.URL, Author: p.Author, IsVideo: p.IsVideo, Content: content}, true
}

func chatHistory(messages []model.ChatMessage) string {
	var lines []string
	for _, m := range messages {
		if nonEmpty(m.Content) {
			lines = append(lines, fmt.Sprintf("%s: %s", m.Role, strings.TrimSpace(m.Content)))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderOutline renders a mind map as an indented bullet list.
func RenderOutline(root *model.MindMapNode) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *model.MindMapNode, depth int)
	walk = func(n *model.MindMapNode, depth int) {
		if n == nil || !nonEmpty(n.Text) {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(n.Text))
		b.WriteString("\n")
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return strings.TrimRight(b.String(), "\n")
}
