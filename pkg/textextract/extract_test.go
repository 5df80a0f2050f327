package textextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	// Known SHA-256 vectors.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Fingerprint(nil))
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Fingerprint([]byte("hello world")))

	// Stable, and sensitive to a single byte.
	assert.Equal(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abd")))
}

func TestExtractPlainText(t *testing.T) {
	for _, name := range []string{"notes.txt", "README.md", "data.csv"} {
		result, err := Extract([]byte("  some document content\n"), name)
		require.NoError(t, err, name)
		assert.Equal(t, "some document content", result.Content, name)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	result, err := Extract([]byte{0x00, 0x01}, "archive.zip")
	require.NoError(t, err)
	assert.Empty(t, result.Content)
	assert.Empty(t, result.Slides)
}

func TestIsSlideFormat(t *testing.T) {
	assert.True(t, IsSlideFormat("deck.pptx"))
	assert.True(t, IsSlideFormat("deck.PPT"))
	assert.False(t, IsSlideFormat("report.pdf"))
	assert.False(t, IsSlideFormat("notes.txt"))
}
