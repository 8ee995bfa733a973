package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohitkumar/canvasflow/ai"
	"github.com/mohitkumar/canvasflow/contextbuilder"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/mohitkumar/canvasflow/model"
	"github.com/mohitkumar/canvasflow/social"
	"github.com/mohitkumar/canvasflow/storage"
	"github.com/mohitkumar/canvasflow/util"
	"github.com/mohitkumar/canvasflow/youtube"
	"go.uber.org/zap"
)

type NotConfiguredError struct {
	Service string
}

func (e NotConfiguredError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Service)
}

type MissingInputError struct {
	Field string
}

func (e MissingInputError) Error() string {
	return fmt.Sprintf("missing %s", e.Field)
}

const imageAnalysisPrompt = `Describe this image in detail. Cover the subjects, any visible text, the setting and the overall message.`

const socialAnalysisPrompt = `Write a complete analysis of the social media post below. Summarize its message, list its key points and note anything notable about the author's intent.`

func (e *NodeExecutor) dispatch(ctx context.Context, wf *model.Workflow, node *model.WorkflowNode, opts Options) error {
	switch d := node.Data.(type) {
	case *model.YouTubeData:
		return e.runYouTube(ctx, d, opts)
	case *model.InstagramData:
		return e.runSocial(ctx, &d.SocialPost, d.AIInstructions, opts)
	case *model.LinkedInData:
		return e.runSocial(ctx, &d.SocialPost, d.AIInstructions, opts)
	case *model.VoiceData:
		return e.runVoice(ctx, d)
	case *model.ImageData:
		return e.runImage(ctx, d)
	case *model.WebpageData:
		return e.runWebpage(ctx, d)
	case *model.PDFData:
		if strings.TrimSpace(d.ParsedText) == "" {
			return MissingInputError{Field: "parsed pdf text"}
		}
		return nil
	case *model.TextData:
		return e.runText(ctx, wf, node.ID, d)
	case *model.PromptData:
		return e.runPrompt(ctx, wf, node.ID, d)
	case *model.TemplateData:
		return e.runTemplate(ctx, wf, node.ID, d)
	case *model.ChatData:
		return e.runChat(ctx, wf, node.ID, d)
	case *model.ImageGenerationData:
		return e.runImageGeneration(ctx, wf, node.ID, d, opts)
	case *model.GroupData, *model.MindMapData:
		return nil
	}
	return fmt.Errorf("no executor for node type %s", node.Type)
}

func (e *NodeExecutor) runYouTube(ctx context.Context, d *model.YouTubeData, opts Options) error {
	if e.deps.YouTube == nil {
		return NotConfiguredError{Service: "youtube transcription"}
	}
	topts := youtube.TranscribeOptions{SkipCache: opts.ForceExecution}
	if d.IsChannel() {
		return e.runChannel(ctx, d, topts)
	}
	url := d.URL
	if url == "" {
		url = d.VideoID
	}
	if url == "" {
		return MissingInputError{Field: "youtube url"}
	}
	res, err := e.deps.YouTube.Transcribe(ctx, url, topts)
	if err != nil {
		return err
	}
	d.VideoID = res.VideoID
	d.Transcript = res.Transcript
	d.Method = res.Method
	d.Language = res.Language
	return nil
}

// runChannel transcribes every selected video. It fails only when no
// video could be transcribed.
func (e *NodeExecutor) runChannel(ctx context.Context, d *model.YouTubeData, topts youtube.TranscribeOptions) error {
	if len(d.SelectedVideos) == 0 {
		return MissingInputError{Field: "selected videos"}
	}
	var errs []error
	for i := range d.SelectedVideos {
		v := &d.SelectedVideos[i]
		url := v.URL
		if url == "" {
			url = youtube.WatchURL(v.ID)
		}
		res, err := e.deps.YouTube.Transcribe(ctx, url, topts)
		if err != nil {
			v.Error = err.Error()
			errs = append(errs, fmt.Errorf("video %s: %w", v.ID, err))
			continue
		}
		v.Error = ""
		v.Transcript = res.Transcript
		v.Method = res.Method
	}
	if len(errs) == len(d.SelectedVideos) {
		return errors.Join(errs...)
	}
	return nil
}

func (e *NodeExecutor) runSocial(ctx context.Context, p *model.SocialPost, instructions string, opts Options) error {
	if e.deps.Social == nil {
		return NotConfiguredError{Service: "social media fetching"}
	}
	if strings.TrimSpace(p.URL) == "" {
		return MissingInputError{Field: "post url"}
	}
	res, err := e.deps.Social.Fetch(ctx, p.URL, opts.UserID)
	if err != nil {
		return err
	}
	post := res.Post
	p.Author = post.Author
	p.Caption = post.Caption
	p.IsVideo = post.IsVideo
	p.Transcript = post.Transcript
	p.ThumbnailURL = res.Storage.PreferredThumbnailURL()
	p.VideoURL = res.Storage.PreferredVideoURL()
	p.ImageURLs = res.Storage.PreferredImageURLs()
	p.StorageStatus = string(res.Storage.Status)
	p.OriginalVideoURL = res.Storage.OriginalVideoURL
	p.OriginalThumbnailURL = res.Storage.OriginalThumbnailURL
	p.FetchMethod = res.Method
	p.FullAnalysis = ""

	if available(e.deps.Generator) {
		analysis, err := e.deps.Generator.Generate(ctx, ai.Request{
			Prompt:            socialAnalysisPrompt + "\n\n" + socialText(p),
			SystemInstruction: instructions,
		})
		if err != nil {
			logger.Warn("social post analysis failed", zap.String("url", p.URL), zap.Error(err))
		} else {
			p.FullAnalysis = strings.TrimSpace(analysis)
		}
	}
	return nil
}

func socialText(p *model.SocialPost) string {
	var b strings.Builder
	if p.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", p.Author)
	}
	if p.Caption != "" {
		fmt.Fprintf(&b, "Caption: %s\n", p.Caption)
	}
	if p.Transcript != "" {
		fmt.Fprintf(&b, "Transcript: %s\n", p.Transcript)
	}
	fmt.Fprintf(&b, "URL: %s", p.URL)
	return b.String()
}

func (e *NodeExecutor) runVoice(ctx context.Context, d *model.VoiceData) error {
	if !available(e.deps.Voice) {
		return NotConfiguredError{Service: "speech recognition"}
	}
	if d.AudioURL == "" {
		return MissingInputError{Field: "audio url"}
	}
	res, err := e.deps.Voice.TranscribeURL(ctx, d.AudioURL)
	if err != nil {
		return err
	}
	d.Transcript = res.Transcript
	d.Language = res.Language
	return nil
}

func (e *NodeExecutor) runImage(ctx context.Context, d *model.ImageData) error {
	if d.URL == "" {
		return MissingInputError{Field: "image url"}
	}
	if !available(e.deps.Generator) {
		return NotConfiguredError{Service: "generative model"}
	}
	if e.deps.Media == nil {
		return NotConfiguredError{Service: "image download"}
	}
	media, err := e.deps.Media.FetchMedia(ctx, d.URL)
	if err != nil {
		return fmt.Errorf("downloading image: %w", err)
	}
	if d.MimeType == "" {
		d.MimeType = media.MimeType
	}
	analysis, err := e.generate(ctx, ai.Request{
		Prompt:            imageAnalysisPrompt,
		SystemInstruction: d.AIInstructions,
		InlineData:        media.Data,
		InlineMIME:        d.MimeType,
	})
	if err != nil {
		return err
	}
	d.Analysis = analysis
	return nil
}

func (e *NodeExecutor) runWebpage(ctx context.Context, d *model.WebpageData) error {
	if e.deps.Pages == nil {
		return NotConfiguredError{Service: "webpage fetching"}
	}
	if d.URL == "" {
		return MissingInputError{Field: "webpage url"}
	}
	page, err := e.deps.Pages.Fetch(ctx, d.URL)
	if err != nil {
		return err
	}
	d.Title = page.Title
	d.Content = page.Content
	return nil
}

func (e *NodeExecutor) generate(ctx context.Context, req ai.Request) (string, error) {
	if !available(e.deps.Generator) {
		return "", NotConfiguredError{Service: "generative model"}
	}
	out, err := e.deps.Generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("generative model returned no text")
	}
	return out, nil
}

// withContext appends the rendered upstream context to prompt.
func withContext(prompt string, chatCtx *model.ChatContext) string {
	if chatCtx.Empty() {
		return prompt
	}
	return prompt + "\n\n# Context\n\n" + chatCtx.Render()
}

func (e *NodeExecutor) runText(ctx context.Context, wf *model.Workflow, nodeId string, d *model.TextData) error {
	if strings.TrimSpace(d.AIInstructions) == "" {
		d.Output = ""
		return nil
	}
	chatCtx, err := contextbuilder.Build(wf, nodeId)
	if err != nil {
		return err
	}
	out, err := e.generate(ctx, ai.Request{
		Prompt:            withContext("Apply the instructions to this text:\n\n"+d.Content, chatCtx),
		SystemInstruction: d.AIInstructions,
	})
	if err != nil {
		return err
	}
	d.Output = out
	return nil
}

func (e *NodeExecutor) runPrompt(ctx context.Context, wf *model.Workflow, nodeId string, d *model.PromptData) error {
	if strings.TrimSpace(d.Prompt) == "" {
		return MissingInputError{Field: "prompt"}
	}
	chatCtx, err := contextbuilder.Build(wf, nodeId)
	if err != nil {
		return err
	}
	out, err := e.generate(ctx, ai.Request{
		Prompt:            withContext(d.Prompt, chatCtx),
		SystemInstruction: d.AIInstructions,
	})
	if err != nil {
		return err
	}
	d.Output = out
	return nil
}

// contextData exposes the context to template placeholders such as
// {$.youtubeTranscripts[0].transcript}.
func contextData(chatCtx *model.ChatContext) (map[string]any, error) {
	raw, err := json.Marshal(chatCtx)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (e *NodeExecutor) runTemplate(ctx context.Context, wf *model.Workflow, nodeId string, d *model.TemplateData) error {
	if strings.TrimSpace(d.Template) == "" {
		return MissingInputError{Field: "template"}
	}
	chatCtx, err := contextbuilder.Build(wf, nodeId)
	if err != nil {
		return err
	}
	data, err := contextData(chatCtx)
	if err != nil {
		return err
	}
	filled := util.ResolveTemplate(d.Template, data)
	out, err := e.generate(ctx, ai.Request{
		Prompt:            withContext("Complete this template using the context:\n\n"+filled, chatCtx),
		SystemInstruction: d.AIInstructions,
	})
	if err != nil {
		return err
	}
	d.Output = out
	return nil
}

func (e *NodeExecutor) runChat(ctx context.Context, wf *model.Workflow, nodeId string, d *model.ChatData) error {
	question := strings.TrimSpace(d.Pending)
	if question == "" {
		return MissingInputError{Field: "chat message"}
	}
	chatCtx, err := contextbuilder.Build(wf, nodeId)
	if err != nil {
		return err
	}
	var history strings.Builder
	for _, m := range d.Messages {
		fmt.Fprintf(&history, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&history, "user: %s\nassistant:", question)
	system := "You are a helpful assistant answering questions about the user's canvas."
	if d.AIInstructions != "" {
		system += "\n\n" + d.AIInstructions
	}
	answer, err := e.generate(ctx, ai.Request{
		Prompt:            withContext(history.String(), chatCtx),
		SystemInstruction: system,
	})
	if err != nil {
		return err
	}
	d.Messages = append(d.Messages,
		model.ChatMessage{Role: "user", Content: question},
		model.ChatMessage{Role: "assistant", Content: answer},
	)
	d.Pending = ""
	return nil
}

func (e *NodeExecutor) runImageGeneration(ctx context.Context, wf *model.Workflow, nodeId string, d *model.ImageGenerationData, opts Options) error {
	if strings.TrimSpace(d.Prompt) == "" {
		return MissingInputError{Field: "image prompt"}
	}
	if !available(e.deps.Images) {
		return NotConfiguredError{Service: "image generation"}
	}
	chatCtx, err := contextbuilder.Build(wf, nodeId)
	if err != nil {
		return err
	}
	prompt := d.Prompt
	if !chatCtx.Empty() && available(e.deps.Generator) {
		refined, err := e.generate(ctx, ai.Request{
			Prompt:            withContext("Write a single detailed image generation prompt based on this request and the context.\n\nRequest: "+d.Prompt, chatCtx),
			SystemInstruction: d.AIInstructions,
		})
		if err != nil {
			return err
		}
		prompt = refined
	}
	img, err := e.deps.Images.GenerateImage(ctx, prompt)
	if err != nil {
		return err
	}
	d.MimeType = img.MIMEType
	if available(e.deps.Uploader) {
		obj, err := e.deps.Uploader.Upload(ctx, storage.ObjectKey(opts.UserID, string(model.NODE_TYPE_IMAGE_GENERATION), "image"+extension(img.MIMEType)), bytes.NewReader(img.Data), img.MIMEType)
		if err == nil {
			d.ImageURL = obj.PublicURL
			return nil
		}
		logger.Warn("storing generated image failed, inlining it", zap.Error(err))
	}
	d.ImageURL = "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
	return nil
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	}
	return ".png"
}

type availability interface {
	Available() bool
}

func available(dep any) bool {
	if dep == nil {
		return false
	}
	if a, ok := dep.(availability); ok {
		return a.Available()
	}
	return true
}

var _ SocialFetcher = (*social.Service)(nil)
var _ YouTubeTranscriber = (*youtube.Service)(nil)
