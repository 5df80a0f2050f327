package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "kb/plain/doc.pdf", escapeLike("kb/plain/doc.pdf"))
	assert.Equal(t, `kb/q1\_review/deck.pptx`, escapeLike("kb/q1_review/deck.pptx"))
	assert.Equal(t, `kb/100\%\_done/\\notes.txt`, escapeLike(`kb/100%_done/\notes.txt`))
}
