package model

import (
	"fmt"
	"strings"
)

func heading(meta ContextMetadata, fallback string) string {
	name := meta.Label
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = meta.NodeID
	}
	if meta.GroupPath != "" {
		name = meta.GroupPath + " > " + name
	}
	return "### " + name
}

type section struct {
	title   string
	entries []string
}

// Render lays the context out as prompt text, one section per kind of
// source. Empty sections are left out.
func (c *ChatContext) Render() string {
	var sections []section
	add := func(title string, entries []string) {
		if len(entries) > 0 {
			sections = append(sections, section{title: title, entries: entries})
		}
	}

	var entries []string
	for _, t := range c.TextContext {
		entries = append(entries, heading(t.ContextMetadata, "Note")+"\n"+t.Content)
	}
	add("Notes", entries)

	entries = nil
	for _, t := range c.YouTubeTranscripts {
		head := heading(t.ContextMetadata, t.Title)
		if t.Label != "" && t.Title != "" && t.Title != t.Label {
			head += ": " + t.Title
		}
		if t.URL != "" {
			head += " (" + t.URL + ")"
		}
		entries = append(entries, head+"\n"+t.Transcript)
	}
	add("YouTube videos", entries)

	entries = nil
	for _, v := range c.VoiceTranscripts {
		head := heading(v.ContextMetadata, "Voice note")
		if v.DurationSeconds > 0 {
			head += fmt.Sprintf(" (%.0fs)", v.DurationSeconds)
		}
		entries = append(entries, head+"\n"+v.Transcript)
	}
	add("Voice recordings", entries)

	entries = nil
	for _, p := range c.PDFDocuments {
		entries = append(entries, heading(p.ContextMetadata, p.FileName)+"\n"+p.Content)
	}
	add("Documents", entries)

	entries = nil
	for _, i := range c.Images {
		body := i.Analysis
		if body == "" {
			body = "Image: " + i.URL
		}
		entries = append(entries, heading(i.ContextMetadata, "Image")+"\n"+body)
	}
	add("Images", entries)

	entries = nil
	for _, w := range c.Webpages {
		head := heading(w.ContextMetadata, w.Title)
		if w.URL != "" {
			head += " (" + w.URL + ")"
		}
		entries = append(entries, head+"\n"+w.Content)
	}
	add("Web pages", entries)

	add("Instagram posts", socialEntries(c.InstagramReels))
	add("LinkedIn posts", socialEntries(c.LinkedInPosts))

	entries = nil
	for _, m := range c.MindMaps {
		entries = append(entries, heading(m.ContextMetadata, m.Title)+"\n"+m.Outline)
	}
	add("Mind maps", entries)

	entries = nil
	for _, t := range c.Templates {
		entries = append(entries, heading(t.ContextMetadata, t.Name)+"\n"+t.Content)
	}
	add("Templates", entries)

	entries = nil
	for _, g := range c.GeneratedImages {
		body := "Image: " + g.URL
		if g.Prompt != "" {
			body = "Prompt: " + g.Prompt + "\n" + body
		}
		entries = append(entries, heading(g.ContextMetadata, "Generated image")+"\n"+body)
	}
	add("Generated images", entries)

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## " + s.title + "\n\n")
		b.WriteString(strings.Join(s.entries, "\n\n"))
	}
	return b.String()
}

func socialEntries(items []SocialItem) []string {
	var entries []string
	for _, s := range items {
		head := heading(s.ContextMetadata, s.Author)
		if s.Label != "" && s.Author != "" && s.Author != s.Label {
			head += " by " + s.Author
		}
		head += " (" + s.URL + ")"
		body := s.Content
		if body == "" {
			body = "No text content was extracted from this post."
		}
		entries = append(entries, head+"\n"+body)
	}
	return entries
}
