package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_WithContext(t *testing.T) {
	docs := []SearchResult{
		{Text: "Gophers live in burrows.", PageNumber: 2, TotalPages: 5},
		{Text: "They eat roots.", PageNumber: 4, TotalPages: 5},
	}
	prompt := BuildPrompt("what do gophers eat?", docs)

	assert.Contains(t, prompt, "Gophers live in burrows.")
	assert.Contains(t, prompt, "They eat roots.")
	assert.Contains(t, prompt, "(page 2 of 5)")
	assert.Contains(t, prompt, "(page 4 of 5)")
	assert.True(t, strings.HasSuffix(prompt, "Question: what do gophers eat?"))

	// Passages appear in rank order.
	assert.Less(t, strings.Index(prompt, "burrows"), strings.Index(prompt, "roots"))
}

func TestBuildPrompt_GroundingInstructions(t *testing.T) {
	prompt := BuildPrompt("q", []SearchResult{{Text: "ctx", PageNumber: 1, TotalPages: 1}})

	assert.Contains(t, prompt, "only the context passages")
	assert.Contains(t, prompt, "plain prose")
	assert.Contains(t, prompt, "not found in the document")
}

func TestBuildPrompt_EmptyContext(t *testing.T) {
	prompt := BuildPrompt("q", nil)

	assert.Contains(t, prompt, "no matching passages were found")
	assert.True(t, strings.HasSuffix(prompt, "Question: q"))
}

func TestBuildPrompt_Pure(t *testing.T) {
	docs := []SearchResult{{Text: "a", PageNumber: 1, TotalPages: 2}}
	assert.Equal(t, BuildPrompt("q", docs), BuildPrompt("q", docs))
}
