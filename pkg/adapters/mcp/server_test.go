package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/adapters/memory"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/episodes"
	"github.com/wavebound/storyline/pkg/playback"
)

const episodeYAML = `
nodes:
  - id: start
    audioRef: intro.mp3
    nextId: A
  - id: A
    audioRef: fork.mp3
    timestamp: 10
    choices:
      - id: choice_left_id
        text: Left
        leadsToNodeId: B
      - id: choice_right_id
        text: Right
        leadsToNodeId: C
  - id: B
    audioRef: b.mp3
  - id: C
    audioRef: c.mp3
    setsFlags: [went_right]
`

type toolResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
}

func (r toolResult) text() string {
	var parts []string
	for _, c := range r.Content {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, "\n")
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s := NewServer(episodes.NewManager(memory.NewStore()), opts...)
	t.Cleanup(s.Close)
	return s
}

func call(t *testing.T, s *Server, tool string, args map[string]any) toolResult {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(s.mcpServer.HandleMessage(context.Background(), msg))
	require.NoError(t, err)

	var resp struct {
		Result *toolResult `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp), string(raw))
	require.Nil(t, resp.Error, string(raw))
	require.NotNil(t, resp.Result, string(raw))
	return *resp.Result
}

func callSession(t *testing.T, s *Server, tool string, args map[string]any) SessionResponse {
	t.Helper()
	res := call(t, s, tool, args)
	require.False(t, res.IsError, res.text())
	var out SessionResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &out), string(res.StructuredContent))
	return out
}

func putEpisode(t *testing.T, s *Server) {
	t.Helper()
	res := call(t, s, "put_graph", map[string]any{
		"series_id": "saga", "episode_id": "ep1", "document": episodeYAML,
	})
	require.False(t, res.IsError, res.text())
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	raw, err := json.Marshal(s.mcpServer.HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp), string(raw))

	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"list_episodes", "get_graph", "put_graph", "validate_episode", "get_mermaid",
		"start_session", "get_session", "tick", "audio_ended", "select_choice",
		"pause", "resume", "restart", "close_session",
	} {
		assert.Contains(t, names, want)
	}
}

func TestAuthoringTools(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s, "get_graph", map[string]any{"series_id": "saga", "episode_id": "ep1"})
	require.False(t, res.IsError, res.text())
	assert.Contains(t, res.text(), `"nodes"`)

	doc := strings.Replace(episodeYAML, "leadsToNodeId: C", "leadsToNodeId: ghost", 1)
	res = call(t, s, "put_graph", map[string]any{"series_id": "saga", "episode_id": "ep1", "document": doc})
	require.False(t, res.IsError, res.text())
	var report ReportResponse
	require.NoError(t, json.Unmarshal(res.StructuredContent, &report))
	var codes []domain.ViolationCode
	for _, v := range report.Violations {
		codes = append(codes, v.Code)
	}
	assert.Contains(t, codes, domain.CodeDanglingChoice)

	res = call(t, s, "validate_episode", map[string]any{"series_id": "saga", "episode_id": "ep1"})
	require.False(t, res.IsError, res.text())
	require.NoError(t, json.Unmarshal(res.StructuredContent, &report))
	assert.Equal(t, "start", report.StartNodeID)
	assert.NotEmpty(t, report.Violations)

	res = call(t, s, "list_episodes", map[string]any{"series_id": "saga"})
	require.False(t, res.IsError, res.text())
	assert.JSONEq(t, `["ep1"]`, res.text())

	res = call(t, s, "get_mermaid", map[string]any{"series_id": "saga", "episode_id": "ep1"})
	require.False(t, res.IsError, res.text())
	assert.Contains(t, res.text(), "graph TD")
}

func TestAuthoringTools_Errors(t *testing.T) {
	s := newTestServer(t)

	res := call(t, s, "put_graph", map[string]any{"series_id": "saga", "episode_id": "ep1", "document": "42"})
	assert.True(t, res.IsError)

	res = call(t, s, "get_graph", map[string]any{"series_id": "saga"})
	assert.True(t, res.IsError)

	res = call(t, s, "get_mermaid", map[string]any{"series_id": "saga", "episode_id": "ep1", "session_id": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.text(), "not found")
}

func TestSession_PlaysThroughBranch(t *testing.T) {
	clock := playback.NewFakeClock(time.Unix(0, 0))
	s := newTestServer(t, WithPlaybackOptions(playback.WithClock(clock)))
	putEpisode(t, s)

	resp := callSession(t, s, "start_session", map[string]any{"series_id": "saga", "episode_id": "ep1", "user_id": "u1"})
	assert.Equal(t, "start", resp.Session.CurrentNodeID)
	assert.Equal(t, domain.PhasePlaying, resp.Session.Phase)
	assert.Equal(t, "u1", resp.Session.UserID)
	id := resp.Session.ID

	callSession(t, s, "audio_ended", map[string]any{"session_id": id})

	res := call(t, s, "select_choice", map[string]any{"session_id": id, "choice_id": "choice_right_id"})
	assert.True(t, res.IsError, "no choices on offer yet")

	resp = callSession(t, s, "tick", map[string]any{"session_id": id, "elapsed": 10})
	assert.Equal(t, domain.PhaseAwaitingChoice, resp.Session.Phase)
	require.Len(t, resp.Choices, 2)
	assert.Equal(t, "choice_left_id", resp.Choices[0].ID)

	res = call(t, s, "select_choice", map[string]any{"session_id": id, "choice_id": "nope"})
	assert.True(t, res.IsError)

	resp = callSession(t, s, "select_choice", map[string]any{"session_id": id, "choice_id": "choice_right_id"})
	assert.Equal(t, "C", resp.Session.CurrentNodeID)
	assert.Equal(t, []string{"choice_right_id"}, resp.Session.History)
	assert.True(t, resp.Session.Flags["went_right"])
	assert.Empty(t, resp.Choices)

	res = call(t, s, "get_mermaid", map[string]any{"series_id": "saga", "episode_id": "ep1", "session_id": id})
	require.False(t, res.IsError, res.text())
	assert.Contains(t, res.text(), "class C current;")

	resp = callSession(t, s, "audio_ended", map[string]any{"session_id": id})
	assert.Equal(t, domain.PhaseEnded, resp.Session.Phase)
	assert.True(t, resp.Terminal)

	resp = callSession(t, s, "restart", map[string]any{"session_id": id})
	assert.Equal(t, "start", resp.Session.CurrentNodeID)
	assert.Empty(t, resp.Session.History)
	assert.Empty(t, resp.Session.Flags)
	assert.False(t, resp.Terminal)

	res = call(t, s, "close_session", map[string]any{"session_id": id})
	require.False(t, res.IsError, res.text())
	res = call(t, s, "get_session", map[string]any{"session_id": id})
	assert.True(t, res.IsError)
	assert.Contains(t, res.text(), "not found")
}

func TestSession_PauseAndTimeout(t *testing.T) {
	clock := playback.NewFakeClock(time.Unix(0, 0))
	s := newTestServer(t, WithPlaybackOptions(playback.WithClock(clock), playback.WithChoiceWindow(5*time.Second)))
	putEpisode(t, s)

	id := callSession(t, s, "start_session", map[string]any{"series_id": "saga", "episode_id": "ep1"}).Session.ID
	callSession(t, s, "audio_ended", map[string]any{"session_id": id})
	callSession(t, s, "tick", map[string]any{"session_id": id, "elapsed": 10})

	resp := callSession(t, s, "pause", map[string]any{"session_id": id})
	assert.Equal(t, domain.PhasePaused, resp.Session.Phase)

	clock.Advance(time.Minute)
	resp = callSession(t, s, "get_session", map[string]any{"session_id": id})
	assert.Equal(t, "A", resp.Session.CurrentNodeID, "a paused session does not time out")

	resp = callSession(t, s, "resume", map[string]any{"session_id": id})
	assert.Equal(t, domain.PhaseAwaitingChoice, resp.Session.Phase)

	clock.Advance(5 * time.Second)
	resp = callSession(t, s, "get_session", map[string]any{"session_id": id})
	assert.Equal(t, "B", resp.Session.CurrentNodeID)
	assert.Equal(t, []string{"choice_left_id"}, resp.Session.History)
}

func TestSession_EndedSessionsExpire(t *testing.T) {
	s := newTestServer(t, WithSessionRetention(0))
	putEpisode(t, s)

	id := callSession(t, s, "start_session", map[string]any{"series_id": "saga", "episode_id": "ep1"}).Session.ID
	callSession(t, s, "audio_ended", map[string]any{"session_id": id})
	callSession(t, s, "tick", map[string]any{"session_id": id, "elapsed": 10})
	callSession(t, s, "select_choice", map[string]any{"session_id": id, "choice_id": "choice_left_id"})
	resp := callSession(t, s, "audio_ended", map[string]any{"session_id": id})
	require.True(t, resp.Terminal)

	live := callSession(t, s, "start_session", map[string]any{"series_id": "saga", "episode_id": "ep1"}).Session.ID
	assert.Equal(t, 1, s.sessions.count())

	res := call(t, s, "get_session", map[string]any{"session_id": id})
	assert.True(t, res.IsError)
	callSession(t, s, "get_session", map[string]any{"session_id": live})
}

func TestSession_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	for _, tool := range []string{"get_session", "audio_ended", "pause", "resume", "restart", "close_session"} {
		res := call(t, s, tool, map[string]any{"session_id": "missing"})
		assert.True(t, res.IsError, tool)
	}
}
