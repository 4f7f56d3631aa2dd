package renderengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/epubkit/mu-epub/pkg/renderengine"
	"github.com/epubkit/mu-epub/pkg/renderir"
)

func TestDefaultRenderEngineOptionsCarriesDefaults(t *testing.T) {
	opts := renderengine.DefaultRenderEngineOptions(300, 400)
	assert.Equal(t, 300, opts.ViewportW)
	assert.Equal(t, 400, opts.ViewportH)
	assert.Equal(t, renderengine.DefaultPrepOptions(), opts.Prep)
}

func TestRenderConfigBuildersAreIndependent(t *testing.T) {
	base := renderengine.RenderConfig{}
	withCancel := base.WithCancel(renderengine.NeverCancel{})
	withFonts := base.WithoutEmbeddedFonts()

	assert.Nil(t, base.Cancel)
	assert.NotNil(t, withCancel.Cancel)
	assert.False(t, base.DisableEmbeddedFonts)
	assert.True(t, withFonts.DisableEmbeddedFonts)
}

func TestNeverCancelReportsNotCancelled(t *testing.T) {
	assert.False(t, renderengine.NeverCancel{}.IsCancelled())
}

func TestNoopOverlayComposerReturnsNoItems(t *testing.T) {
	items := renderengine.NoopOverlayComposer{}.Compose(renderir.PageMetrics{}, renderir.OverlaySize{})
	assert.Empty(t, items)
}
