// Package transpile renders lightweight-markup documents one line at a time.
//
// Rendering is strictly line-oriented: Convert sees a single line and carries no
// state between calls. Constructs spanning several lines (lists, fenced code
// blocks, setext headings) therefore render line by line, each in isolation.
package transpile

import (
	"bytes"
	"html"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Converter renders a single markup line. Implementations must be total and pure.
type Converter interface {
	Convert(line string) string
}

// ConverterFunc adapts a plain function to Converter.
type ConverterFunc func(line string) string

func (f ConverterFunc) Convert(line string) string { return f(line) }

// DefaultCacheSize bounds the number of memoized line renderings.
const DefaultCacheSize = 4096

// GoldmarkConverter renders lines with goldmark and memoizes the results.
type GoldmarkConverter struct {
	md    goldmark.Markdown
	cache *lru.Cache[string, string]
}

// NewGoldmarkConverter returns a converter caching up to cacheSize rendered lines.
// A non-positive size selects DefaultCacheSize.
func NewGoldmarkConverter(cacheSize int) (*GoldmarkConverter, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &GoldmarkConverter{
		md:    goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
		cache: cache,
	}, nil
}

// Convert renders line as a standalone markdown document.
func (c *GoldmarkConverter) Convert(line string) string {
	if out, ok := c.cache.Get(line); ok {
		return out
	}
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(line), &buf); err != nil {
		// bytes.Buffer never fails; keep Convert total regardless.
		return "<p>" + html.EscapeString(line) + "</p>\n"
	}
	out := buf.String()
	c.cache.Add(line, out)
	return out
}

// Cached reports how many distinct lines are currently memoized.
func (c *GoldmarkConverter) Cached() int { return c.cache.Len() }
