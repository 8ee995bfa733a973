package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireSufficient(t *testing.T) {
	_, err := RequireSufficient("too short")
	require.ErrorIs(t, err, ErrInsufficientOutput)

	long := strings.Repeat("a", MinUsefulOutput)
	out, err := RequireSufficient("  " + long + "\n")
	require.NoError(t, err)
	require.Equal(t, long, out)
}

func TestUnconfiguredGemini(t *testing.T) {
	g, err := NewGeminiClient(context.Background(), "", "")
	require.NoError(t, err)
	require.False(t, g.Available())
	_, err = g.Generate(context.Background(), Request{Prompt: "hi"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
