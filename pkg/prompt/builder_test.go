package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildGrounded(t *testing.T) {
	passages := []string{"first passage", "second passage"}
	query := "what does the document say?"

	p := BuildGrounded(passages, query)

	assert.Contains(t, p, "first passage\n\nsecond passage")
	assert.Contains(t, p, query)
	// Passage order is rank order and must be preserved.
	assert.Less(t, strings.Index(p, "first passage"), strings.Index(p, "second passage"))
}

func TestBuildGroundedEmptyContext(t *testing.T) {
	p := BuildGrounded(nil, "anything")
	assert.Contains(t, p, "CONTEXT")
	assert.Contains(t, p, "anything")
}
