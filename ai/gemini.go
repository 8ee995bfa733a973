package ai

import (
	"context"
	"fmt"

	"github.com/mohitkumar/canvasflow/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DEFAULT_MODEL = "gemini-2.5-flash"
const DEFAULT_IMAGE_MODEL = "imagen-3.0-generate-002"

var _ Generator = new(GeminiClient)
var _ ImageGenerator = new(GeminiClient)

type GeminiClient struct {
	client     *genai.Client
	model      string
	imageModel string
}

// NewGeminiClient returns nil without error when apiKey is empty so callers
// can treat the model as unconfigured.
func NewGeminiClient(ctx context.Context, apiKey string, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, nil
	}
	if model == "" {
		model = DEFAULT_MODEL
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		imageModel: DEFAULT_IMAGE_MODEL,
	}, nil
}

func (g *GeminiClient) Available() bool {
	return g != nil && g.client != nil
}

func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if !g.Available() {
		return "", ErrNotConfigured
	}
	var parts []*genai.Part
	if req.MediaURI != "" {
		parts = append(parts, genai.NewPartFromURI(req.MediaURI, req.MediaMIME))
	}
	if len(req.InlineData) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.InlineData, req.InlineMIME))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var config *genai.GenerateContentConfig
	if req.SystemInstruction != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	logger.Debug("gemini response", zap.String("model", g.model), zap.Int("length", len(text)))
	return text, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if !g.Available() {
		return nil, ErrNotConfigured
	}
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini generate image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("gemini returned no image")
	}
	img := resp.GeneratedImages[0].Image
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Image{Data: img.ImageBytes, MIMEType: mime}, nil
}
