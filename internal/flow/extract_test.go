package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "nested message text",
			raw:  `{"outputs":[{"outputs":[{"results":{"message":{"text":"hello"}}}]}]}`,
			want: "hello",
		},
		{
			name: "nested results text",
			raw:  `{"outputs":[{"outputs":[{"results":{"text":"from results"}}]}]}`,
			want: "from results",
		},
		{
			name: "nested plain message",
			raw:  `{"outputs":[{"outputs":[{"message":{"text":"plain message"}}]}]}`,
			want: "plain message",
		},
		{
			name: "last inner output wins",
			raw:  `{"outputs":[{"outputs":[{"results":{"message":{"text":"first"}}},{"results":{"message":{"text":"second"}}}]}]}`,
			want: "second",
		},
		{
			name: "message text preferred over results text",
			raw:  `{"outputs":[{"outputs":[{"results":{"text":"lower"},"message":{"text":"ignored"}}]},{"outputs":[{"results":{"message":{"text":"higher"}}}]}]}`,
			want: "higher",
		},
		{
			name: "top level result string",
			raw:  `{"result":"direct answer"}`,
			want: "direct answer",
		},
		{
			name: "top level result object with text",
			raw:  `{"result":{"text":"object answer"}}`,
			want: "object answer",
		},
		{
			name: "top level result object without text marshals",
			raw:  `{"result":{"value":42}}`,
			want: `{"value":42}`,
		},
		{
			name: "top level text",
			raw:  `{"text":"bare text"}`,
			want: "bare text",
		},
		{
			name: "empty strings are skipped",
			raw:  `{"outputs":[{"outputs":[{"results":{"message":{"text":""}}}]}],"text":"fallthrough"}`,
			want: "fallthrough",
		},
		{
			name: "unknown shape falls back",
			raw:  `{"something":"else"}`,
			want: FallbackAnswer,
		},
		{
			name: "empty document falls back",
			raw:  `{}`,
			want: FallbackAnswer,
		},
		{
			name: "malformed outputs fall back",
			raw:  `{"outputs":"not an array"}`,
			want: FallbackAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswer(decode(t, tt.raw)))
		})
	}
}
