package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"finchat/internal/types"
)

func TestToContents(t *testing.T) {
	contents, system := toContents([]types.Message{
		{Role: types.RoleSystem, Content: "rules"},
		{Role: types.RoleUser, Content: "q"},
		{Role: types.RoleAssistant, Content: "a"},
	})
	require.Len(t, contents, 2)
	assert.Equal(t, []string{"rules"}, system)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "a", contents[1].Parts[0].Text)
}

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}}},
		{Content: &genai.Content{Parts: []*genai.Part{{Text: " Neutral "}, {Text: "tone."}}}},
	}}
	assert.Equal(t, "Neutral tone.", firstText(resp))
}
