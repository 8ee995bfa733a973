package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinUsefulOutput is the shortest response treated as a real answer.
const MinUsefulOutput = 100

var ErrInsufficientOutput = errors.New("generated output too short")
var ErrNotConfigured = errors.New("generative model api key not configured")

// Request is a single-shot generation. MediaURI references remote media
// (for example a video URL); InlineData carries small media such as images.
type Request struct {
	Prompt            string
	SystemInstruction string
	MediaURI          string
	MediaMIME         string
	InlineData        []byte
	InlineMIME        string
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Image struct {
	Data     []byte
	MIMEType string
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// RequireSufficient rejects responses too short to stand in for real content.
func RequireSufficient(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(trimmed); n < MinUsefulOutput {
		return "", fmt.Errorf("%w: %d characters", ErrInsufficientOutput, n)
	}
	return trimmed, nil
}
