package authoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/domain"
)

func storyGraph() *domain.Graph {
	return &domain.Graph{
		StartNodeID: "start",
		Nodes: []domain.Node{
			{ID: "start", Kind: domain.NodeKindStart, Title: "Opening", AudioRef: "intro.mp3", NextID: "A"},
			{
				ID: "A", Kind: domain.NodeKindChoice, AudioRef: "a.mp3", Timestamp: domain.Seconds(10),
				Choices: []domain.Choice{
					{ID: "choice_left_id", Text: "Left", LeadsToNodeID: "B"},
					{ID: "choice_right_id", Text: "Right", LeadsToNodeID: "C"},
				},
			},
			{ID: "B", Kind: domain.NodeKindCheckpoint, SetsFlags: []string{"went_left"}, NextID: "M"},
			{ID: "C", Kind: domain.NodeKindScene, AudioRef: "c.mp3", Description: "the right path", NextID: "M"},
			{ID: "M", Kind: domain.NodeKindMerge, AudioRef: "m.mp3", NextID: "E", RequiredFlags: []string{"went_left"}},
			{ID: "E", Kind: domain.NodeKindEnd, Title: "Fin"},
		},
	}
}

func TestToVisual_GridLayoutIsDeterministic(t *testing.T) {
	g := storyGraph()

	c1 := ToVisual(g, nil)
	c2 := ToVisual(g, nil)

	assert.Equal(t, c1, c2)
	require.Len(t, c1.Nodes, 6)
	assert.Equal(t, Position{X: 0, Y: 0}, c1.Nodes[0].Position)
	assert.Equal(t, Position{X: 3 * ColumnSpacing, Y: 0}, c1.Nodes[3].Position)
	assert.Equal(t, Position{X: 0, Y: RowSpacing}, c1.Nodes[4].Position)
	assert.Equal(t, Position{X: ColumnSpacing, Y: RowSpacing}, c1.Nodes[5].Position)
}

func TestToVisual_UsesStoredPositions(t *testing.T) {
	c := ToVisual(storyGraph(), Layout{"A": {X: 42, Y: 7}})

	assert.Equal(t, Position{X: 42, Y: 7}, c.Nodes[1].Position)
	assert.Equal(t, GridPosition(2), c.Nodes[2].Position)
}

func TestToVisual_CategoriesAndEdges(t *testing.T) {
	c := ToVisual(storyGraph(), nil)

	categories := map[string]domain.EffectiveKind{}
	for _, n := range c.Nodes {
		categories[n.ID] = n.Category
	}
	assert.Equal(t, domain.KindStart, categories["start"])
	assert.Equal(t, domain.KindDecision, categories["A"])
	assert.Equal(t, domain.KindCheckpoint, categories["B"])
	assert.Equal(t, domain.KindMerge, categories["M"])
	assert.Equal(t, domain.KindEnd, categories["E"])

	var labels []string
	for _, e := range c.Edges {
		if e.Source == "A" {
			labels = append(labels, e.Label)
		}
	}
	assert.Equal(t, []string{"Left", "Right"}, labels)
	assert.Contains(t, c.Edges, CanvasEdge{
		ID: "e:A:choice:choice_right_id", Source: "A", Target: "C",
		SourceHandle: "choice:choice_right_id", Label: "Right",
	})
	assert.Contains(t, c.Edges, CanvasEdge{ID: "e:start:next", Source: "start", Target: "A", SourceHandle: HandleNext})
}

func TestRoundTrip_IsIdempotent(t *testing.T) {
	graphs := map[string]*domain.Graph{
		"story": storyGraph(),
		"empty": domain.NewEmptyGraph(),
		"scene labeled as decision": {Nodes: []domain.Node{
			{ID: "s", Kind: domain.NodeKindScene, Choices: []domain.Choice{{ID: "x", Text: "Go", LeadsToNodeID: "t"}}},
			{ID: "t"},
		}},
	}

	for name, g := range graphs {
		t.Run(name, func(t *testing.T) {
			res := FromVisual(ToVisual(g, nil))

			assert.True(t, Equivalent(g, res.Graph), "round trip changed the graph:\n%+v\n%+v", g, res.Graph)
			assert.Equal(t, g, res.Graph)

			again := FromVisual(ToVisual(res.Graph, res.Layout))
			assert.Equal(t, res.Graph, again.Graph)
			assert.Equal(t, res.Layout, again.Layout)
		})
	}
}

func TestRoundTrip_KeepsShadowedNextAndEmptyTargets(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{
		{ID: "a", NextID: "b", Choices: []domain.Choice{
			{ID: "c1", Text: "One", LeadsToNodeID: "b"},
			{ID: "c2", Text: "Unwired"},
		}},
		{ID: "b"},
	}}

	res := FromVisual(ToVisual(g, nil))

	assert.Equal(t, g, res.Graph)
	assert.Contains(t, violationCodes(res), domain.CodeNextShadowed)
	assert.Contains(t, violationCodes(res), domain.CodeEmptyChoiceTarget)
}

func TestFromVisual_DeletedTargetIsReportedNotBlocking(t *testing.T) {
	c := ToVisual(storyGraph(), nil)
	// Delete node C but keep the edge pointing at it.
	var kept []CanvasNode
	for _, n := range c.Nodes {
		if n.ID != "C" {
			kept = append(kept, n)
		}
	}
	c.Nodes = kept

	res := FromVisual(c)

	require.NotNil(t, res.Graph)
	assert.Len(t, res.Graph.Nodes, 5)
	a := res.Graph.FindNode("A")
	require.NotNil(t, a)
	assert.Equal(t, "C", a.ChoiceByID("choice_right_id").LeadsToNodeID)
	assert.Contains(t, violationCodes(res), domain.CodeDanglingChoice)
	// The edge leaving C is dropped with a report.
	assert.Contains(t, violationCodes(res), domain.CodeStrayEdge)
}

func TestFromVisual_EdgeRules(t *testing.T) {
	c := &Canvas{
		Nodes: []CanvasNode{
			{ID: "a", Data: NodeData{Choices: []ChoiceSlot{{ID: "x", Text: "Old text"}}}},
			{ID: "b"},
			{ID: "c"},
			{ID: "a", Data: NodeData{Title: "duplicate"}},
		},
		Edges: []CanvasEdge{
			{ID: "1", Source: "a", Target: "b"},
			{ID: "2", Source: "a", Target: "c", SourceHandle: HandleNext},
			{ID: "3", Source: "a", Target: "c", SourceHandle: ChoiceHandle("x"), Label: "New text"},
			{ID: "4", Source: "a", Target: "b", SourceHandle: ChoiceHandle("y"), Label: "Drawn later"},
			{ID: "5", Source: "b", Target: "c", Label: "labeled but not a choice"},
			{ID: "6", Source: "b", Target: "c", SourceHandle: "next"},
		},
	}

	res := FromVisual(c)

	require.Len(t, res.Graph.Nodes, 3)
	a := res.Graph.FindNode("a")
	assert.Empty(t, a.Title)
	assert.Equal(t, "b", a.NextID, "first unlabeled edge wins")
	assert.Equal(t, []domain.Choice{
		{ID: "x", Text: "New text", LeadsToNodeID: "c"},
		{ID: "y", Text: "Drawn later", LeadsToNodeID: "b"},
	}, a.Choices)
	assert.Equal(t, "c", res.Graph.FindNode("b").NextID)

	codes := violationCodes(res)
	assert.Contains(t, codes, domain.CodeDuplicateID)
	assert.Contains(t, codes, domain.CodeAmbiguousNext)
	assert.Contains(t, codes, domain.CodeStrayEdge)
}

func TestFromVisual_Nil(t *testing.T) {
	res := FromVisual(nil)
	require.NotNil(t, res.Graph)
	assert.Contains(t, violationCodes(res), domain.CodeEmptyGraph)
}

func TestEquivalent(t *testing.T) {
	a := storyGraph()
	b := storyGraph()
	b.Nodes[0], b.Nodes[1] = b.Nodes[1], b.Nodes[0]
	assert.True(t, Equivalent(a, b), "node order is not significant")

	b.FindNode("A").Choices[1].LeadsToNodeID = "B"
	assert.False(t, Equivalent(a, b))

	assert.True(t, Equivalent(nil, nil))
	assert.False(t, Equivalent(a, nil))
}

func violationCodes(r *Result) []domain.ViolationCode {
	var out []domain.ViolationCode
	for _, v := range r.Violations {
		out = append(out, v.Code)
	}
	return out
}
