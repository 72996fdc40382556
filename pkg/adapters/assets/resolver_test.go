package assets_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavebound/storyline/pkg/adapters/assets"
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/ports"
)

var (
	_ ports.AssetResolver = (*assets.URLResolver)(nil)
	_ ports.AssetResolver = (*assets.DirResolver)(nil)
	_ ports.AssetResolver = assets.StaticResolver(nil)
)

func TestURLResolver(t *testing.T) {
	r, err := assets.NewURLResolver("https://cdn.example.com/audio")
	require.NoError(t, err)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "s1/intro.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/audio/s1/intro.mp3", got)

	got, err = r.Resolve(ctx, "https://other.example.com/x.mp3")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com/x.mp3", got)

	_, err = r.Resolve(ctx, "")
	assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
}

func TestURLResolver_RejectsRelativeBase(t *testing.T) {
	_, err := assets.NewURLResolver("audio/")
	assert.Error(t, err)
}

func TestDirResolver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "ep1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ep1", "intro.mp3"), []byte("id3"), 0o644))

	r := assets.NewDirResolver(dir)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "ep1/intro.mp3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "file://"))
	assert.True(t, strings.HasSuffix(got, "/ep1/intro.mp3"))

	for _, ref := range []string{"missing.mp3", "ep1", "../escape.mp3", ""} {
		_, err := r.Resolve(ctx, ref)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable, ref)
	}
}

func TestStaticResolver(t *testing.T) {
	r := assets.StaticResolver{"a": "mem://a"}
	got, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "mem://a", got)

	_, err = r.Resolve(context.Background(), "b")
	assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
}
