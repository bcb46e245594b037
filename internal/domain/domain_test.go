package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLineResponse(t *testing.T) {
	at := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	msg, ok := ClassifyLine(`{"jsonrpc":"2.0","id":1,"result":{"serverInfo":{"name":"srv"}}}`, at)
	require.True(t, ok)

	assert.Equal(t, DirectionResponse, msg.Direction)
	assert.Equal(t, MessageID("1"), msg.ID)
	assert.False(t, msg.Failed())
	assert.Equal(t, at, msg.At)
}

func TestClassifyLineErrorResponse(t *testing.T) {
	msg, ok := ClassifyLine(`{"jsonrpc":"2.0","id":"abc","error":{"code":-32601,"message":"method not found"}}`, time.Now())
	require.True(t, ok)

	assert.Equal(t, DirectionResponse, msg.Direction)
	assert.Equal(t, MessageID(`"abc"`), msg.ID)
	require.True(t, msg.Failed())
	assert.Equal(t, -32601, msg.Error.Code)
}

func TestClassifyLineServerNotification(t *testing.T) {
	msg, ok := ClassifyLine(`{"jsonrpc":"2.0","method":"notifications/progress","params":{}}`, time.Now())
	require.True(t, ok)

	assert.Equal(t, DirectionNotification, msg.Direction)
	assert.Empty(t, msg.ID)
	assert.Equal(t, "notifications/progress", msg.Method)
}

func TestClassifyLineOrdinaryOutput(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "plain text", line: "server starting on stdio"},
		{name: "empty", line: ""},
		{name: "truncated json", line: `{"jsonrpc":"2.0","id":1`},
		{name: "json array", line: `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ClassifyLine(tt.line, time.Now())
			assert.False(t, ok)
		})
	}
}

func TestNumericAndStringIDsStayDistinct(t *testing.T) {
	numeric, ok := ClassifyLine(`{"jsonrpc":"2.0","id":3,"result":{}}`, time.Now())
	require.True(t, ok)
	quoted, ok := ClassifyLine(`{"jsonrpc":"2.0","id":"3","result":{}}`, time.Now())
	require.True(t, ok)

	assert.NotEqual(t, numeric.ID, quoted.ID)
}

func TestNewRequestWireShape(t *testing.T) {
	msg, err := NewRequest(7, "tools/list", nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, DirectionRequest, msg.Direction)
	assert.Equal(t, MessageID("7"), msg.ID)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`, msg.Raw)
	assert.NotContains(t, msg.Raw, "\n")
}

func TestNewNotificationHasNoID(t *testing.T) {
	msg, err := NewNotification("notifications/initialized", nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, DirectionNotification, msg.Direction)
	assert.Empty(t, msg.ID)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, msg.Raw)
}

func TestPrettyJSONReindents(t *testing.T) {
	msg, err := NewRequest(1, "initialize", map[string]any{"protocolVersion": "2024-11-05"}, time.Now())
	require.NoError(t, err)

	pretty := msg.PrettyJSON()
	assert.Contains(t, pretty, "\n  \"id\": 1")
}

func TestToolsFromResult(t *testing.T) {
	tools := ToolsFromResult([]byte(`{"tools":[{"name":"search_images_tool","description":"Search images"},{"name":"download_tool"}]}`))
	require.Len(t, tools, 2)

	assert.Equal(t, "search_images_tool", tools[0].Name)
	assert.Equal(t, "download_tool", tools[1].Name)
}

func TestToolsFromResultMalformed(t *testing.T) {
	assert.Nil(t, ToolsFromResult([]byte(`not json`)))
	assert.Empty(t, ToolsFromResult([]byte(`{"tools":null}`)))
}

func TestContentPreview(t *testing.T) {
	preview, ok := ContentPreview([]byte(`{"content":[{"type":"text","text":"found 3 images"}]}`))
	require.True(t, ok)
	assert.Equal(t, "found 3 images", preview)
}

func TestContentPreviewNonTextItem(t *testing.T) {
	preview, ok := ContentPreview([]byte(`{"content":[{"type":"image","data":"zz"}]}`))
	require.True(t, ok)
	assert.Contains(t, preview, `"image"`)
}

func TestContentPreviewEmpty(t *testing.T) {
	_, ok := ContentPreview([]byte(`{"content":[]}`))
	assert.False(t, ok)

	_, ok = ContentPreview([]byte(`{}`))
	assert.False(t, ok)
}

func TestTruncatePreview(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "under limit untouched", in: "short", limit: 200, want: "short"},
		{name: "at limit untouched", in: "abcde", limit: 5, want: "abcde"},
		{name: "over limit marked", in: "abcdef", limit: 5, want: "abcde…"},
		{name: "zero limit untouched", in: "abcdef", limit: 0, want: "abcdef"},
		{name: "multibyte counted in runes", in: "héllo wörld", limit: 5, want: "héllo…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncatePreview(tt.in, tt.limit))
		})
	}
}

func TestStreamBufferNeverExceedsCapacity(t *testing.T) {
	buf := NewStreamBuffer(30)
	for i := 0; i < 500; i++ {
		buf.Append(StreamLine{At: time.Now(), Text: fmt.Sprintf("line %d", i)})
	}

	require.Equal(t, 30, buf.Len())

	snapshot := buf.Snapshot()
	assert.Equal(t, "line 470", snapshot[0].Text)
	assert.Equal(t, "line 499", snapshot[len(snapshot)-1].Text)
}

func TestStreamBufferTail(t *testing.T) {
	buf := NewStreamBuffer(10)
	for i := 0; i < 5; i++ {
		buf.Append(StreamLine{Text: fmt.Sprintf("%d", i)})
	}

	tail := buf.Tail(3)
	require.Len(t, tail, 3)
	assert.Equal(t, "2", tail[0].Text)

	assert.Len(t, buf.Tail(50), 5)
}

func TestStreamBufferSnapshotIsCopy(t *testing.T) {
	buf := NewStreamBuffer(4)
	buf.Append(StreamLine{Text: "a"})

	snapshot := buf.Snapshot()
	snapshot[0].Text = "mutated"

	assert.Equal(t, "a", buf.Snapshot()[0].Text)
}

func TestStripANSI(t *testing.T) {
	colored := "\x1b[32mSUCCESS\x1b[0m and \x1b[1;31mERROR\x1b[0m"
	assert.Equal(t, "SUCCESS and ERROR", StripANSI(colored))

	plain := "nothing to strip"
	assert.Equal(t, plain, StripANSI(plain))
}

func TestLaunchSpecString(t *testing.T) {
	spec := LaunchSpec{Command: "uv", Args: []string{"run", "main.py"}, Dir: "/srv/app"}
	assert.Equal(t, "uv run main.py (cwd=/srv/app)", spec.String())

	bare := LaunchSpec{Command: "python"}
	assert.Equal(t, "python", bare.String())
	assert.False(t, strings.Contains(bare.String(), "cwd"))
}
