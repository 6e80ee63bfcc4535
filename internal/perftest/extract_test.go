package perftest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainScript = `import http from 'k6/http';
import { check, sleep } from 'k6';

export const options = {
  stages: [{ duration: '10s', target: 20 }],
};

export default function() {
  const res = http.get('https://example.com');
  check(res, { 'status is 200': (r) => r.status === 200 });
  sleep(1);
}`

func TestExtractScriptCode_BareCode(t *testing.T) {
	got, ok := ExtractScriptCode(plainScript)
	require.True(t, ok)
	assert.Equal(t, plainScript, got)
}

func TestExtractScriptCode_JavascriptFence(t *testing.T) {
	response := "```javascript\n" + plainScript + "\n```"
	got, ok := ExtractScriptCode(response)
	require.True(t, ok)
	assert.Equal(t, plainScript, got)
}

func TestExtractScriptCode_JsFence(t *testing.T) {
	response := "```js\n" + plainScript + "\n```"
	got, ok := ExtractScriptCode(response)
	require.True(t, ok)
	assert.Equal(t, plainScript, got)
}

func TestExtractScriptCode_PlainFence(t *testing.T) {
	response := "```\n" + plainScript + "\n```"
	got, ok := ExtractScriptCode(response)
	require.True(t, ok)
	assert.Equal(t, plainScript, got)
}

func TestExtractScriptCode_LeadingProse(t *testing.T) {
	response := "Here is the k6 load test you asked for:\n\n" + plainScript
	got, ok := ExtractScriptCode(response)
	require.True(t, ok)
	assert.True(t, len(got) > 0)
	assert.Contains(t, got, "export default function()")
	assert.NotContains(t, got, "Here is the k6")
}

func TestExtractScriptCode_TrailingProse(t *testing.T) {
	response := plainScript + "\n\nThis script ramps to 20 VUs and holds } for ten seconds."
	got, ok := ExtractScriptCode(response)
	require.True(t, ok)
	assert.Contains(t, got, "export default function()")
	assert.NotContains(t, got, "ramps to 20 VUs")
}

func TestExtractScriptCode_Unrecoverable(t *testing.T) {
	_, ok := ExtractScriptCode("Sorry, I cannot generate that script for you today.")
	assert.False(t, ok)
}

func TestStripCodeFences_NoFence(t *testing.T) {
	assert.Equal(t, "plain text", StripCodeFences("  plain text\n"))
}

func TestStripCodeFences_PrefersLanguageTag(t *testing.T) {
	response := "```javascript\ncode here\n```"
	assert.Equal(t, "code here", StripCodeFences(response))
}
