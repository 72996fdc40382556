package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/domain"
)

func codes(r *Report) []domain.ViolationCode {
	out := make([]domain.ViolationCode, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Code)
	}
	return out
}

func TestValidate_ValidGraph(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{
		{ID: "start", Kind: domain.NodeKindStart, AudioRef: "a.mp3", NextID: "fork"},
		{ID: "fork", Kind: domain.NodeKindScene, AudioRef: "f.mp3", Choices: []domain.Choice{
			{ID: "l", Text: "Left", LeadsToNodeID: "left"},
			{ID: "r", Text: "Right", LeadsToNodeID: "right"},
		}},
		{ID: "left", NextID: "merge", SetsFlags: []string{"brave"}},
		{ID: "right", AudioRef: "r.mp3", NextID: "merge"},
		{ID: "merge", AudioRef: "m.mp3", NextID: "end", RequiredFlags: []string{"brave"}},
		{ID: "end", AudioRef: "e.mp3"},
	}}

	r := Validate(g)

	assert.True(t, r.OK(), "unexpected violations: %v", r.Err())
	assert.NoError(t, r.Err())
	assert.Equal(t, "start", r.StartNodeID)
	assert.Equal(t, map[string]domain.EffectiveKind{
		"start": domain.KindStart,
		"fork":  domain.KindDecision,
		"left":  domain.KindCheckpoint,
		"right": domain.KindScene,
		"merge": domain.KindMerge,
		"end":   domain.KindEnd,
	}, r.Kinds)
}

func TestValidate_EmptyGraph(t *testing.T) {
	r := Validate(&domain.Graph{})
	assert.Equal(t, []domain.ViolationCode{domain.CodeEmptyGraph}, codes(r))
	assert.Empty(t, r.StartNodeID)

	r = Validate(nil)
	assert.True(t, r.Has(domain.CodeEmptyGraph))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name  string
		graph *domain.Graph
		want  domain.ViolationCode
	}{
		{
			name:  "dangling next",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a", NextID: "ghost"}}},
			want:  domain.CodeDanglingNext,
		},
		{
			name: "dangling choice",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "z", Choices: []domain.Choice{{ID: "only", LeadsToNodeID: "ghost"}}},
			}},
			want: domain.CodeDanglingChoice,
		},
		{
			name: "empty choice target",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "z", Choices: []domain.Choice{{ID: "only"}}},
			}},
			want: domain.CodeEmptyChoiceTarget,
		},
		{
			name:  "duplicate id",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {ID: "a"}}},
			want:  domain.CodeDuplicateID,
		},
		{
			name:  "empty id",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {}}},
			want:  domain.CodeEmptyNodeID,
		},
		{
			name: "duplicate choice id",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "a", Choices: []domain.Choice{{ID: "c", LeadsToNodeID: "b"}, {ID: "c", LeadsToNodeID: "b"}}},
				{ID: "b"},
			}},
			want: domain.CodeDuplicateChoiceID,
		},
		{
			name: "next shadowed by choices",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "a", NextID: "b", Choices: []domain.Choice{{ID: "c", LeadsToNodeID: "b"}}},
				{ID: "b"},
			}},
			want: domain.CodeNextShadowed,
		},
		{
			name:  "negative timestamp",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a", Timestamp: domain.Seconds(-1)}}},
			want:  domain.CodeNegativeTimestamp,
		},
		{
			name:  "unknown start",
			graph: &domain.Graph{StartNodeID: "ghost", Nodes: []domain.Node{{ID: "a"}}},
			want:  domain.CodeUnknownStart,
		},
		{
			name: "multiple starts",
			graph: &domain.Graph{Nodes: []domain.Node{
				{ID: "a", Kind: domain.NodeKindStart, NextID: "b"},
				{ID: "b", Kind: domain.NodeKindStart},
			}},
			want: domain.CodeMultipleStarts,
		},
		{
			name:  "unreachable",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {ID: "island"}}},
			want:  domain.CodeUnreachable,
		},
		{
			name:  "required flag never set",
			graph: &domain.Graph{Nodes: []domain.Node{{ID: "a", RequiredFlags: []string{"key"}}}},
			want:  domain.CodeUnknownFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.graph)
			assert.Contains(t, codes(r), tt.want)
			assert.False(t, r.OK())
			assert.Error(t, r.Err())
		})
	}
}

func TestValidate_DanglingChoiceCarriesContext(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{
		{ID: "z", Choices: []domain.Choice{{ID: "only", Text: "Go", LeadsToNodeID: "ghost"}}},
	}}

	vs := Violations(Validate(g).Err())
	require.Len(t, vs, 1)
	assert.Equal(t, "z", vs[0].NodeID)
	assert.Equal(t, "only", vs[0].ChoiceID)
	assert.Equal(t, "ghost", vs[0].TargetID)
}

func TestResolveStart(t *testing.T) {
	tests := []struct {
		name  string
		graph *domain.Graph
		want  string
	}{
		{"explicit id", &domain.Graph{StartNodeID: "b", Nodes: []domain.Node{{ID: "a", Kind: domain.NodeKindStart}, {ID: "b"}}}, "b"},
		{"unknown id falls back to declared", &domain.Graph{StartNodeID: "x", Nodes: []domain.Node{{ID: "a"}, {ID: "b", Kind: domain.NodeKindStart}}}, "b"},
		{"first declared start wins", &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {ID: "b", Kind: domain.NodeKindStart}, {ID: "c", Kind: domain.NodeKindStart}}}, "b"},
		{"first node", &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {ID: "b"}}}, "a"},
		{"empty", &domain.Graph{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStart(tt.graph))
		})
	}
}

func TestFirstPlayable(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{
		{ID: "start", NextID: "bridge"},
		{ID: "bridge", NextID: "scene", SetsFlags: []string{"crossed"}},
		{ID: "scene", AudioRef: "s.mp3", NextID: "end"},
		{ID: "end"},
		{ID: "loop1", NextID: "loop2"},
		{ID: "loop2", NextID: "loop1"},
		{ID: "broken", NextID: "ghost"},
		{ID: "ask", NextID: "end", Choices: []domain.Choice{{ID: "c", LeadsToNodeID: "end"}}},
	}}

	chain, err := FirstPlayable(g, "start")
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "bridge", "scene"}, chain)

	chain, err = FirstPlayable(g, "ask")
	require.NoError(t, err)
	assert.Equal(t, []string{"ask"}, chain, "decision nodes are never skipped")

	chain, err = FirstPlayable(g, "end")
	require.NoError(t, err)
	assert.Equal(t, []string{"end"}, chain)

	_, err = FirstPlayable(g, "loop1")
	var res *domain.ResolutionError
	require.ErrorAs(t, err, &res)
	assert.Contains(t, res.Reason, "cycle")

	chain, err = FirstPlayable(g, "broken")
	require.ErrorAs(t, err, &res)
	assert.Equal(t, "broken", res.FromNodeID)
	assert.Equal(t, "ghost", res.TargetID)
	assert.Equal(t, []string{"broken"}, chain)
}

func TestNormalize(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{{ID: "a"}, {ID: "b", Kind: domain.NodeKindStart}}}

	n := Normalize(g)

	assert.Equal(t, "b", n.StartNodeID)
	assert.Empty(t, g.StartNodeID, "input must not be mutated")
	assert.Equal(t, 1, len(Normalize(nil).Nodes))
}

func TestAggregateError_Message(t *testing.T) {
	g := &domain.Graph{Nodes: []domain.Node{{ID: "a", NextID: "x"}, {ID: "a"}}}
	err := Validate(g).Err()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation errors")
	assert.Len(t, Violations(err), 2)
}
