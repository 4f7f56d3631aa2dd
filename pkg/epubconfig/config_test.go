package epubconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epubkit/mu-epub/pkg/epubconfig"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := epubconfig.Load("")
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.ViewportW)
	assert.Equal(t, 800, cfg.ViewportH)
	assert.Equal(t, 128, cfg.MemoryMaxPagesInMemory)
	assert.Equal(t, 2097152, cfg.Font.MaxFontBytes)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mu-epub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewport_w: 300\nviewport_h: 400\n"), 0o644))

	cfg, err := epubconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.ViewportW)
	assert.Equal(t, 400, cfg.ViewportH)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mu-epub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewport_w: 300\n"), 0o644))

	t.Setenv("MUEPUB_VIEWPORT_W", "500")

	cfg, err := epubconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ViewportW)
}

func TestLoadRejectsZeroPagesInMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mu-epub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("memory_max_pages_in_memory: 0\n"), 0o644))

	_, err := epubconfig.Load(path)
	require.Error(t, err)
}

func TestConfigProjectionsWireIntoDownstreamTypes(t *testing.T) {
	cfg, err := epubconfig.Load("")
	require.NoError(t, err)

	zipLimits := cfg.ZipLimits()
	assert.Equal(t, cfg.ZipMaxFileReadSize, zipLimits.MaxFileReadSize)

	budget := cfg.MemoryBudget()
	assert.Equal(t, cfg.MemoryMaxPagesInMemory, budget.MaxPagesInMemory)

	styleLimits := cfg.StyleLimits()
	assert.Equal(t, cfg.StyleMaxSelectors, styleLimits.MaxSelectors)

	engineOpts := cfg.RenderEngineOptions()
	assert.Equal(t, cfg.ViewportW, engineOpts.ViewportW)
	assert.Equal(t, cfg.MemoryMaxPagesInMemory, engineOpts.Prep.MaxPagesInMemory)
}
