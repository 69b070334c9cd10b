package chunker

import (
	"strings"
	"testing"

	"erp-knowledge-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortContent(t *testing.T) {
	parts, err := Split(model.ChunkerRecursive, "Refund policy: 30 days money back.", 500, 50)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Contains(t, parts[0], "Refund policy")
}

func TestSplitLongContent(t *testing.T) {
	paragraph := strings.Repeat("Each order ships within two business days. ", 10)
	content := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	parts, err := Split(model.ChunkerRecursive, content, 200, 20)
	require.NoError(t, err)
	assert.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.NotEmpty(t, strings.TrimSpace(part))
	}
}

func TestSplitMarkdownChunker(t *testing.T) {
	content := "# Policies\n\n## Refunds\n\nMoney back within 30 days.\n\n## Shipping\n\nTwo business days."
	parts, err := Split(model.ChunkerMarkdown, content, 60, 0)
	require.NoError(t, err)
	require.NotEmpty(t, parts)

	joined := strings.Join(parts, "\n")
	assert.Contains(t, joined, "Money back")
	assert.Contains(t, joined, "business days")
}

func TestSplitEmptyKindDefaultsToRecursive(t *testing.T) {
	parts, err := Split("", "hello world", 100, 0)
	require.NoError(t, err)
	assert.Len(t, parts, 1)
}

func TestSplitUnknownChunker(t *testing.T) {
	_, err := Split("semantic", "hello", 100, 0)
	assert.Error(t, err)
}

func TestFilterStandaloneHeaders(t *testing.T) {
	parts := []string{
		"",
		"   ",
		"# Title",
		"# Title\n## Section",
		"# Title\nActual body text.",
		"plain text",
	}

	filtered := filterStandaloneHeaders(parts)
	require.Len(t, filtered, 2)
	assert.Equal(t, "# Title\nActual body text.", filtered[0])
	assert.Equal(t, "plain text", filtered[1])
}
