package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/domain"
)

const episodeYAML = `
startNodeId: start
nodes:
  - id: start
    kind: start
    title: Opening
    audioRef: intro.mp3
    nextId: fork
  - id: fork
    audioRef: fork.mp3
    timestamp: 10
    choices:
      - id: left
        text: Left
        leadsToNodeId: end
      - id: right
        text: Right
        leadsToNodeId: end
  - id: end
    setsFlags: [finished]
    editorColor: "#ff0000"
`

func TestDecode_YAML(t *testing.T) {
	g, err := Decode([]byte(episodeYAML))
	require.NoError(t, err)

	assert.Equal(t, "start", g.StartNodeID)
	require.Len(t, g.Nodes, 3)
	fork := g.FindNode("fork")
	require.NotNil(t, fork)
	require.NotNil(t, fork.Timestamp)
	assert.Equal(t, 10.0, *fork.Timestamp)
	assert.Equal(t, "Right", fork.Choices[1].Text)
	assert.Equal(t, []string{"finished"}, g.FindNode("end").SetsFlags)
}

func TestDecode_JSONAndBareList(t *testing.T) {
	g, err := Decode([]byte(`[{"id": 1, "nextId": 2}, {"id": 2, "timestamp": 2.5}]`))
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "1", g.Nodes[0].ID)
	assert.Equal(t, "2", g.Nodes[0].NextID)
	assert.Equal(t, 2.5, *g.Nodes[1].Timestamp)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode([]byte("just a string"))
	assert.Error(t, err)

	_, err = Decode([]byte("nodes: [1, 2"))
	assert.Error(t, err)
}

func TestEncode_RoundTrip(t *testing.T) {
	g, err := Decode([]byte(episodeYAML))
	require.NoError(t, err)

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Encode(g, format)
			require.NoError(t, err)

			back, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, g, back)
		})
	}

	_, err = Encode(g, "toml")
	assert.Error(t, err)
}

func TestEncode_EmptyGraph(t *testing.T) {
	data, err := Encode(domain.NewEmptyGraph(), FormatYAML)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, domain.NewEmptyGraph(), back)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("ep1.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("ep1.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("ep1"))
}
