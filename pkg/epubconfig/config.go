// Package epubconfig loads the tunable resource limits shared across
// pkg/zipio, pkg/epub, pkg/layout, and pkg/renderengine, layered the way
// the teacher's pkg/config loads its Config: struct-tag defaults, an
// optional YAML file, environment variable overrides, then validation.
// This is optional sugar — every limit type also has a plain Go-literal
// constructor for embedded callers who cannot link koanf's dependency
// graph.
package epubconfig

import (
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/epubkit/mu-epub/pkg/epub"
	"github.com/epubkit/mu-epub/pkg/layout"
	"github.com/epubkit/mu-epub/pkg/renderengine"
	"github.com/epubkit/mu-epub/pkg/zipio"
)

// envPrefix namespaces environment overrides, e.g. MUEPUB_VIEWPORT_W.
const envPrefix = "MUEPUB_"

// FontLimits holds caps on embedded font data per chapter. No package in
// this module reads them, and the layout engine does not consult them. The
// core never rasterizes fonts itself; these caps exist so a caller-supplied
// font backend can be handed a bounded byte budget rather than an unbounded
// one.
type FontLimits struct {
	MaxFontBytes  int `koanf:"max_font_bytes" json:"max_font_bytes" default:"2097152" validate:"min=0"`
	MaxFontsTotal int `koanf:"max_fonts_total" json:"max_fonts_total" default:"8" validate:"min=0"`
}

// Config is the full layered configuration surface for an embedding
// application: every tunable limit struct plus the viewport the render
// engine is constructed for.
type Config struct {
	ViewportW int `koanf:"viewport_w" json:"viewport_w" default:"600" validate:"required,min=1"`
	ViewportH int `koanf:"viewport_h" json:"viewport_h" default:"800" validate:"required,min=1"`

	ZipMaxFileReadSize int  `koanf:"zip_max_file_read_size" json:"zip_max_file_read_size" default:"8388608" validate:"min=0"`
	ZipMaxMimetypeSize int  `koanf:"zip_max_mimetype_size" json:"zip_max_mimetype_size" default:"1024" validate:"min=0"`
	ZipStrict          bool `koanf:"zip_strict" json:"zip_strict" default:"false"`

	MemoryMaxEntryBytes       int `koanf:"memory_max_entry_bytes" json:"memory_max_entry_bytes" default:"8388608" validate:"min=0"`
	MemoryMaxCSSBytes         int `koanf:"memory_max_css_bytes" json:"memory_max_css_bytes" default:"524288" validate:"min=0"`
	MemoryMaxNavBytes         int `koanf:"memory_max_nav_bytes" json:"memory_max_nav_bytes" default:"262144" validate:"min=0"`
	MemoryMaxInlineStyleBytes int `koanf:"memory_max_inline_style_bytes" json:"memory_max_inline_style_bytes" default:"65536" validate:"min=0"`
	MemoryMaxPagesInMemory    int `koanf:"memory_max_pages_in_memory" json:"memory_max_pages_in_memory" default:"128" validate:"required,min=1"`

	StyleMaxSelectors int `koanf:"style_max_selectors" json:"style_max_selectors" default:"512" validate:"min=0"`
	StyleMaxCSSBytes  int `koanf:"style_max_css_bytes" json:"style_max_css_bytes" default:"524288" validate:"min=0"`
	StyleMaxNesting   int `koanf:"style_max_nesting" json:"style_max_nesting" default:"32" validate:"min=0"`

	Font FontLimits `koanf:"font" json:"font"`

	Strict bool `koanf:"strict" json:"strict" default:"false"`
}

// defaultConfig returns a Config with every default applied via
// creasty/defaults, mirroring the teacher's defaults() constructor but
// driven by struct tags instead of a hand-written literal.
func defaultConfig() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	return cfg, nil
}

// Load builds a Config: defaults first, then configPath (if it exists,
// parsed as YAML), then MUEPUB_-prefixed environment variables, then
// validation. configPath may be empty, in which case only defaults and
// environment variables apply.
func Load(configPath string) (*Config, error) {
	cfg, err := defaultConfig()
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(s)
}

// Validate runs struct validation against cfg, returning a
// validator.ValidationErrors-wrapped error on the first violation set.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}

// ZipLimits projects the ZIP-layer fields into a zipio.ZipLimits value.
func (c *Config) ZipLimits() zipio.ZipLimits {
	lim := zipio.NewZipLimits(c.ZipMaxFileReadSize, c.ZipMaxMimetypeSize)
	lim.Strict = c.ZipStrict
	return lim
}

// MemoryBudget projects the container-layer fields into an
// epub.MemoryBudget value.
func (c *Config) MemoryBudget() epub.MemoryBudget {
	return epub.MemoryBudget{
		MaxEntryBytes:       c.MemoryMaxEntryBytes,
		MaxCSSBytes:         c.MemoryMaxCSSBytes,
		MaxNavBytes:         c.MemoryMaxNavBytes,
		MaxInlineStyleBytes: c.MemoryMaxInlineStyleBytes,
		MaxPagesInMemory:    c.MemoryMaxPagesInMemory,
	}
}

// StyleLimits projects the style-cascade fields into a layout.StyleLimits
// value.
func (c *Config) StyleLimits() layout.StyleLimits {
	return layout.StyleLimits{
		MaxSelectors: c.StyleMaxSelectors,
		MaxCSSBytes:  c.StyleMaxCSSBytes,
		MaxNesting:   c.StyleMaxNesting,
	}
}

// EpubOptions projects the container-layer fields into epub.Options,
// ready to pass to epub.Open.
func (c *Config) EpubOptions() epub.Options {
	mode := epub.Lenient
	if c.Strict {
		mode = epub.Strict
	}
	return epub.Options{
		ZipLimits: c.ZipLimits(),
		Budget:    c.MemoryBudget(),
		Mode:      mode,
	}
}

// RenderEngineOptions projects the full Config into a
// renderengine.RenderEngineOptions value, ready to pass to
// renderengine.New.
func (c *Config) RenderEngineOptions() renderengine.RenderEngineOptions {
	opts := renderengine.DefaultRenderEngineOptions(c.ViewportW, c.ViewportH)
	opts.Style = c.StyleLimits()
	opts.Prep.Strict = c.Strict
	opts.Prep.MaxPagesInMemory = c.MemoryMaxPagesInMemory
	return opts
}
