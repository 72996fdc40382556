// Package assets provides AssetResolver implementations that turn a node's
// audio reference into a playable URL.
package assets

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/wavebound/storyline/pkg/domain"
)

// URLResolver joins relative audio references onto a base URL. Absolute URLs
// pass through unchanged.
type URLResolver struct {
	base *url.URL
}

// NewURLResolver parses base. It must be an absolute URL.
func NewURLResolver(base string) (*URLResolver, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse asset base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("asset base url %q is not absolute", base)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &URLResolver{base: u}, nil
}

// Resolve implements ports.AssetResolver.
func (r *URLResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if ref == "" {
		return "", fmt.Errorf("empty reference: %w", domain.ErrAssetUnavailable)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", ref, domain.ErrAssetUnavailable)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	return r.base.ResolveReference(u).String(), nil
}

// DirResolver serves audio files from a local directory and fails for
// references that do not exist on disk.
type DirResolver struct {
	Root string
}

// NewDirResolver creates a resolver rooted at dir.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{Root: dir}
}

// Resolve implements ports.AssetResolver. The result is a file:// URL.
func (r *DirResolver) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if ref == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid reference %q: %w", ref, domain.ErrAssetUnavailable)
	}

	path := filepath.Join(r.Root, clean)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", ref, domain.ErrAssetUnavailable)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", ref, domain.ErrAssetUnavailable)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// StaticResolver maps references through a fixed table. Useful for previews
// and tests.
type StaticResolver map[string]string

// Resolve implements ports.AssetResolver.
func (r StaticResolver) Resolve(_ context.Context, ref string) (string, error) {
	if u, ok := r[ref]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%q: %w", ref, domain.ErrAssetUnavailable)
}
