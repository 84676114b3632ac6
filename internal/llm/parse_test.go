package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Strict(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON(`{"mentions": ["burpee", "merkin"]}`, &resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"burpee", "merkin"}, resp.Mentions)
}

func TestParseJSON_MarkdownFence(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON("```json\n{\"mentions\": [\"burpee\"]}\n```", &resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"burpee"}, resp.Mentions)
}

func TestParseJSON_FenceWithoutLanguageTag(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON("```\n{\"mentions\": []}\n```", &resp)
	require.NoError(t, err)
	assert.Empty(t, resp.Mentions)
}

func TestParseJSON_RepairsTrailingComma(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON(`{"mentions": ["burpee", "merkin",]}`, &resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"burpee", "merkin"}, resp.Mentions)
}

func TestParseJSON_RepairsSingleQuotes(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON(`{'mentions': ['burpee']}`, &resp)
	require.NoError(t, err)
	assert.Equal(t, []string{"burpee"}, resp.Mentions)
}

func TestParseJSON_GarbageFails(t *testing.T) {
	var resp mentionsResponse
	err := ParseJSON("I could not find any exercises in this text.", &resp)
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"upper tag", "```JSON\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripFences(tc.input))
		})
	}
}
